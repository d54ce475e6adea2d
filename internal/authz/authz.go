// Package authz is the capability collaborator boundary. The engine only
// asks whether the caller holds a capability; role assignment and
// grant/revoke flows live in the external identity system that issues the
// bearer tokens.
package authz

import (
	"context"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// Checker answers capability questions for the authenticated caller.
type Checker interface {
	// Require returns an unauthorized error unless the caller in ctx holds
	// the capability.
	Require(ctx context.Context, capability domain.Capability) error
}

// ContextChecker trusts the capabilities the token middleware verified and
// stored in the request context.
type ContextChecker struct{}

func NewContextChecker() ContextChecker {
	return ContextChecker{}
}

func (ContextChecker) Require(ctx context.Context, capability domain.Capability) error {
	if requestcontext.Principal(ctx).IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	for _, held := range requestcontext.Capabilities(ctx) {
		if held == capability {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeUnauthorized, "caller lacks %s capability", capability)
}
