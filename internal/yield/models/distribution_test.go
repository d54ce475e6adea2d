package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

func TestNewDistributionValidation(t *testing.T) {
	_, err := NewDistribution(0, domain.USDFromCents(0), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	dist, err := NewDistribution(0, domain.USDFromCents(1_000_000), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), dist.Amount.Cents())
}

func TestShareOfProRata(t *testing.T) {
	dist := &Distribution{Amount: domain.USDFromCents(5_000_000)} // 50,000.00 USD

	cut, err := dist.ShareOf(1000, 1_000_000)
	require.NoError(t, err)
	// 1000 of 1,000,000 shares earns 0.1% of the pool.
	assert.Equal(t, int64(5000), cut.Cents())
}

func TestShareOfFloorsResidual(t *testing.T) {
	dist := &Distribution{Amount: domain.USDFromCents(100)}

	cut, err := dist.ShareOf(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(33), cut.Cents())
}

func TestShareOfSurvivesLargeProducts(t *testing.T) {
	// Amount * balance overflows int64; the big.Int path must not.
	dist := &Distribution{Amount: domain.USDFromCents(math.MaxInt64 / 2)}

	cut, err := dist.ShareOf(1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64/2), cut.Cents())
}

func TestShareOfZeroBalance(t *testing.T) {
	dist := &Distribution{Amount: domain.USDFromCents(100)}

	cut, err := dist.ShareOf(0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cut.Cents())
}

func TestShareOfZeroTotalRejected(t *testing.T) {
	dist := &Distribution{Amount: domain.USDFromCents(100)}

	_, err := dist.ShareOf(10, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
