package domain

import (
	"fmt"
	"strconv"
)

// USD is a fixed-point USD amount in cents. All valuation, pricing, and yield
// arithmetic uses integer cents; divisions floor and the residue is an
// accepted rounding loss.
type USD int64

// USDFromCents builds a USD amount from raw cents.
func USDFromCents(cents int64) USD {
	return USD(cents)
}

func (u USD) Cents() int64 {
	return int64(u)
}

func (u USD) IsPositive() bool {
	return u > 0
}

func (u USD) String() string {
	sign := ""
	c := int64(u)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// TokenUnits is an amount of payment-token base units. The settlement token is
// USD-pegged with one base unit per cent, so trading settles at face value;
// yield claims convert through the oracle rate instead.
type TokenUnits int64

func (t TokenUnits) IsPositive() bool {
	return t > 0
}

func (t TokenUnits) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// FaceValue converts a USD amount to token units at the 1-unit-per-cent peg.
func (u USD) FaceValue() TokenUnits {
	return TokenUnits(u)
}

// Shares counts fractional ownership units of a tokenized asset. Balances are
// never negative.
type Shares int64

func (s Shares) IsPositive() bool {
	return s > 0
}

func (s Shares) String() string {
	return strconv.FormatInt(int64(s), 10)
}
