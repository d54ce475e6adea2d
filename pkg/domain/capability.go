package domain

import dErrors "tessera/pkg/domain-errors"

// Capability is an unforgeable proof, carried in the caller's bearer token,
// that the caller holds a specific administrative role. Role assignment and
// grant/revoke flows live outside this system.
type Capability string

const (
	// CapabilityAdmin gates asset registration, tokenization, custodian
	// reassignment, and yield declarations.
	CapabilityAdmin Capability = "admin"
	// CapabilityAppraiser gates valuation updates.
	CapabilityAppraiser Capability = "appraiser"
	// CapabilityCompliance gates whitelist and blacklist administration.
	CapabilityCompliance Capability = "compliance"
)

// ParseCapability validates a capability name from an external token claim.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown capability: "+s)
	}
	return c, nil
}

func (c Capability) IsValid() bool {
	switch c {
	case CapabilityAdmin, CapabilityAppraiser, CapabilityCompliance:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}
