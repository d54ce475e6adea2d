package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

func TestNewRecordValidation(t *testing.T) {
	now := time.Now()
	expiry := now.Add(365 * 24 * time.Hour)

	_, err := NewRecord(domain.Address(""), true, expiry, "h", "PT", 0, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewRecord(domain.Address("investor-1"), true, time.Time{}, "h", "PT", 0, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewRecord(domain.Address("investor-1"), true, expiry, "h", "PT", -1, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	record, err := NewRecord(domain.Address("investor-1"), true, expiry, "h", "PT", 500, now)
	require.NoError(t, err)
	assert.Equal(t, domain.Shares(500), record.MaxHolding)
}

func TestKYCExpired(t *testing.T) {
	now := time.Now()
	record := &Record{Address: "a", Whitelisted: true, KYCExpiry: now.Add(-time.Hour)}
	assert.True(t, record.KYCExpired(now))

	record.KYCExpiry = now.Add(time.Hour)
	assert.False(t, record.KYCExpired(now))
}

func TestHoldingCeiling(t *testing.T) {
	record := &Record{Address: "a", MaxHolding: 0}
	assert.Equal(t, domain.Shares(10_000), record.HoldingCeiling(10_000))

	record.MaxHolding = 250
	assert.Equal(t, domain.Shares(250), record.HoldingCeiling(10_000))

	// A personal ceiling above the protocol-wide one does not lift it.
	record.MaxHolding = 50_000
	assert.Equal(t, domain.Shares(10_000), record.HoldingCeiling(10_000))

	record.MaxHolding = 250
	assert.Equal(t, domain.Shares(250), record.HoldingCeiling(0))
}
