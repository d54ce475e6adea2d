package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

func newTestAsset(t *testing.T) *Asset {
	t.Helper()
	asset, err := NewAsset("Downtown Loft", "real_estate", "Lisbon",
		domain.USDFromCents(100_000_000), "doc-hash", "REG-001",
		domain.Address("custodian-1"), time.Now())
	require.NoError(t, err)
	return asset
}

func TestNewAssetValidation(t *testing.T) {
	now := time.Now()

	_, err := NewAsset("", "cat", "loc", domain.USDFromCents(100), "h", "r", domain.Address("c"), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewAsset("Name", "cat", "loc", domain.USDFromCents(0), "h", "r", domain.Address("c"), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewAsset("Name", "cat", "loc", domain.USDFromCents(100), "h", "r", domain.Address(""), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestTokenizationDerivesFlooredSharePrice(t *testing.T) {
	asset := newTestAsset(t)
	require.NoError(t, asset.CanTokenize(domain.Shares(1_000_000)))

	asset.ApplyTokenization(domain.Shares(1_000_000))

	assert.True(t, asset.Tokenized)
	// 100,000,000 cents over 1,000,000 shares is exactly 100 cents per share.
	assert.Equal(t, int64(100), asset.SharePrice.Cents())
}

func TestTokenizationFloorsResidual(t *testing.T) {
	asset := newTestAsset(t)
	asset.Valuation = domain.USDFromCents(1_000_001)

	asset.ApplyTokenization(domain.Shares(3))

	// 1,000,001 / 3 = 333,333.67; the residual two cents are unrepresentable.
	assert.Equal(t, int64(333_333), asset.SharePrice.Cents())
}

func TestTokenizeTwiceRejected(t *testing.T) {
	asset := newTestAsset(t)
	asset.ApplyTokenization(domain.Shares(1000))

	err := asset.CanTokenize(domain.Shares(500))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestTokenizeInactiveRejected(t *testing.T) {
	asset := newTestAsset(t)
	asset.ApplyDeactivation()

	err := asset.CanTokenize(domain.Shares(1000))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRevaluationBeforeTokenizationLeavesPriceZero(t *testing.T) {
	asset := newTestAsset(t)

	require.NoError(t, asset.CanRevalue(domain.USDFromCents(200_000_000)))
	asset.ApplyValuation(domain.USDFromCents(200_000_000), time.Now())

	assert.Equal(t, domain.Shares(0), asset.TotalShares)
	assert.Equal(t, int64(0), asset.SharePrice.Cents())
}

func TestRevaluationAfterTokenizationRepricesShares(t *testing.T) {
	asset := newTestAsset(t)
	asset.ApplyTokenization(domain.Shares(1_000_000))

	asset.ApplyValuation(domain.USDFromCents(150_000_000), time.Now())

	assert.Equal(t, int64(150), asset.SharePrice.Cents())
	assert.Equal(t, domain.Shares(1_000_000), asset.TotalShares)
}
