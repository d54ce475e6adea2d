package authz

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// RequireAuth validates the bearer token and injects the principal and its
// capabilities into the request context. Per-operation capability checks stay
// in the services; this middleware only establishes who is calling.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			addr, caps, err := tokens.Validate(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), addr)
			ctx = requestcontext.WithCapabilities(ctx, caps)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
