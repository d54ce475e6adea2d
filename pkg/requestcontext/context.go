// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// this package free of net/http lets services import only what they need.
//
// Usage in services:
//
//	principal := requestcontext.Principal(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithPrincipal(ctx, "addr-buyer")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"tessera/pkg/domain"
)

type (
	principalKey    struct{}
	capabilitiesKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// Principal retrieves the authenticated caller address from the context.
// Returns the zero address if not set.
func Principal(ctx context.Context) domain.Address {
	if addr, ok := ctx.Value(principalKey{}).(domain.Address); ok {
		return addr
	}
	return ""
}

// WithPrincipal injects the caller address into the context.
func WithPrincipal(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, principalKey{}, addr)
}

// Capabilities retrieves the caller's verified capabilities. Returns nil if
// the caller holds none.
func Capabilities(ctx context.Context) []domain.Capability {
	if caps, ok := ctx.Value(capabilitiesKey{}).([]domain.Capability); ok {
		return caps
	}
	return nil
}

// WithCapabilities injects verified capabilities into the context.
func WithCapabilities(ctx context.Context, caps []domain.Capability) context.Context {
	return context.WithValue(ctx, capabilitiesKey{}, caps)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time from the context, falling back to
// time.Now for non-HTTP contexts (workers, CLI, tests). A single timestamp
// per operation keeps hold-period and KYC-expiry checks consistent within a
// call.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
