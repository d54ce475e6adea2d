package authz

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	strutil "tessera/pkg/platform/strings"
)

// Claims carries the principal address and its capability grants.
type Claims struct {
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies (and, for tooling and tests, issues) capability
// bearer tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue mints a signed token for the given principal and capabilities.
// Duplicate capability grants collapse to one claim entry.
func (s *TokenService) Issue(addr domain.Address, caps []domain.Capability, expiresIn time.Duration) (string, error) {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	names = strutil.DedupeAndTrimLower(names)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address:      addr.String(),
		Capabilities: names,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a bearer token, returning the principal and
// its capabilities. Unknown capability names are rejected rather than
// silently dropped.
func (s *TokenService) Validate(tokenString string) (domain.Address, []domain.Capability, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	addr, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no principal address")
	}

	caps := make([]domain.Capability, 0, len(claims.Capabilities))
	for _, name := range claims.Capabilities {
		c, err := domain.ParseCapability(name)
		if err != nil {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "token carries unknown capability")
		}
		caps = append(caps, c)
	}
	return addr, caps, nil
}
