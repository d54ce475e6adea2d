package authz

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-signing-key", "tessera")

	token, err := svc.Issue("admin-1", []domain.Capability{domain.CapabilityAdmin}, time.Hour)
	require.NoError(t, err)

	addr, caps, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("admin-1"), addr)
	assert.Equal(t, []domain.Capability{domain.CapabilityAdmin}, caps)
}

func TestTokenRejectedWithWrongKey(t *testing.T) {
	issued, err := NewTokenService("key-one", "tessera").
		Issue("admin-1", nil, time.Hour)
	require.NoError(t, err)

	_, _, err = NewTokenService("key-two", "tessera").Validate(issued)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService("test-signing-key", "tessera")
	issued, err := svc.Issue("admin-1", nil, -time.Minute)
	require.NoError(t, err)

	_, _, err = svc.Validate(issued)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestUnknownCapabilityNameRejected(t *testing.T) {
	svc := NewTokenService("test-signing-key", "tessera")

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address:      "admin-1",
		Capabilities: []string{"superuser"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, _, err = svc.Validate(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTokenWithoutAddressRejected(t *testing.T) {
	svc := NewTokenService("test-signing-key", "tessera")

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := raw.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, _, err = svc.Validate(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestContextCheckerRequire(t *testing.T) {
	checker := NewContextChecker()

	t.Run("unauthenticated caller", func(t *testing.T) {
		err := checker.Require(context.Background(), domain.CapabilityAdmin)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing capability", func(t *testing.T) {
		ctx := requestcontext.WithPrincipal(context.Background(), "alice")
		ctx = requestcontext.WithCapabilities(ctx, []domain.Capability{domain.CapabilityAppraiser})
		err := checker.Require(ctx, domain.CapabilityAdmin)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("held capability", func(t *testing.T) {
		ctx := requestcontext.WithPrincipal(context.Background(), "alice")
		ctx = requestcontext.WithCapabilities(ctx, []domain.Capability{domain.CapabilityAdmin})
		assert.NoError(t, checker.Require(ctx, domain.CapabilityAdmin))
	})
}
