package domain

import (
	"strconv"
	"strings"

	dErrors "tessera/pkg/domain-errors"
)

// Address identifies a principal on the ledger: an investor, custodian,
// administrator, or the engine's own escrow account.
type Address string

const maxAddressLen = 128

// ParseAddress validates and normalizes a ledger address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address cannot be empty")
	}
	if len(s) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeValidation, "address exceeds maximum length")
	}
	return Address(s), nil
}

func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}

// AssetID is a monotonically increasing identifier allocated by the asset
// registry, starting at zero.
type AssetID uint64

// ParseAssetID parses an asset ID from its decimal string form.
func ParseAssetID(s string) (AssetID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid asset id")
	}
	return AssetID(n), nil
}

func (id AssetID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
