// Package models defines the compliance aggregates: the per-address KYC
// record and the blacklist flag. The two are independent; a blacklist flag
// always overrides a whitelist entry.
package models

import (
	"time"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Record is the per-address compliance state. Writes are idempotent
// overwrites; there is no record history.
type Record struct {
	Address         domain.Address
	Whitelisted     bool
	KYCExpiry       time.Time
	KYCDocumentHash string
	Jurisdiction    string
	// MaxHolding is a personal per-asset ceiling in shares. Zero means the
	// protocol-wide ceiling applies unmodified.
	MaxHolding domain.Shares
	UpdatedAt  time.Time
}

// NewRecord validates and builds a compliance record.
func NewRecord(addr domain.Address, whitelisted bool, kycExpiry time.Time, kycDocumentHash, jurisdiction string, maxHolding domain.Shares, now time.Time) (*Record, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if maxHolding < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "max holding must be non-negative")
	}
	if whitelisted && kycExpiry.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "whitelisted record requires a KYC expiry")
	}
	return &Record{
		Address:         addr,
		Whitelisted:     whitelisted,
		KYCExpiry:       kycExpiry,
		KYCDocumentHash: kycDocumentHash,
		Jurisdiction:    jurisdiction,
		MaxHolding:      maxHolding,
		UpdatedAt:       now,
	}, nil
}

// KYCExpired reports whether the record's verification lapsed as of now.
func (r *Record) KYCExpired(now time.Time) bool {
	return !r.KYCExpiry.IsZero() && r.KYCExpiry.Before(now)
}

// HoldingCeiling resolves the effective per-asset ceiling for this record:
// the tighter of the personal ceiling and the protocol-wide one. A personal
// ceiling can only narrow the protocol ceiling, never widen it. Zero means
// unlimited.
func (r *Record) HoldingCeiling(protocolMax domain.Shares) domain.Shares {
	if r.MaxHolding > 0 && (protocolMax == 0 || r.MaxHolding < protocolMax) {
		return r.MaxHolding
	}
	return protocolMax
}

// BlacklistFlag marks an address as barred from receiving or selling shares.
type BlacklistFlag struct {
	Address   domain.Address
	Flagged   bool
	Reason    string
	UpdatedAt time.Time
}
