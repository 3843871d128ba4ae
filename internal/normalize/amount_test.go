package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("12.34567890")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.3456789")))

	_, err = ParseAmount("")
	require.Error(t, err)

	_, err = ParseAmount("12.3.4")
	require.Error(t, err)
}

func TestFormatAmount_FixedEightDigits(t *testing.T) {
	assert.Equal(t, "10.00000000", FormatAmount(decimal.NewFromInt(10)))
	assert.Equal(t, "0.00000000", FormatAmount(decimal.Zero))
	assert.Equal(t, "0.12345679", FormatAmount(decimal.RequireFromString("0.123456789")))
}

func TestAmountRoundTrip(t *testing.T) {
	for _, s := range []string{"0.00000000", "1.50000000", "99999999.99999999"} {
		d, err := ParseAmount(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatAmount(d))
	}
}
