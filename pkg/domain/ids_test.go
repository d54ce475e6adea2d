package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tessera/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects whitespace only", func(t *testing.T) {
		_, err := ParseAddress("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseAddress(strings.Repeat("a", maxAddressLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		addr, err := ParseAddress("  investor-1  ")
		require.NoError(t, err)
		assert.Equal(t, Address("investor-1"), addr)
	})

	t.Run("zero value", func(t *testing.T) {
		assert.True(t, Address("").IsZero())
		assert.False(t, Address("investor-1").IsZero())
	})
}

func TestParseAssetID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AssetID
		wantErr bool
	}{
		{"zero is a valid id", "0", 0, false},
		{"plain decimal", "42", 42, false},
		{"surrounding whitespace", " 7 ", 7, false},
		{"empty string", "", 0, true},
		{"negative", "-1", 0, true},
		{"non-numeric", "abc", 0, true},
		{"hex form rejected", "0x1f", 0, true},
		{"overflow", "18446744073709551616", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseAssetID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestAssetIDRoundTrip(t *testing.T) {
	for _, id := range []AssetID{0, 1, 42, 1<<63 + 1} {
		parsed, err := ParseAssetID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}
