package wallet

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovault/internal/domain"
)

// validNativeAddress encodes a known-good curve point.
func validNativeAddress() string {
	return base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
}

func TestValidateAddress_Native(t *testing.T) {
	require.NoError(t, ValidateAddress(domain.KindNative, validNativeAddress()))
}

func TestValidateAddress_NativeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"bad_alphabet": "0OIl+/=",
		"too_short":    base58.Encode([]byte{1, 2, 3}),
		"not_on_curve": base58.Encode(make32(0xff)),
	}
	for name, addr := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateAddress(domain.KindNative, addr))
		})
	}
}

func make32(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestValidateAddress_EVM(t *testing.T) {
	require.NoError(t, ValidateAddress(domain.KindEVM, "0x1234567890abcdef1234567890abcdef12345678"))

	cases := map[string]string{
		"no_prefix": "1234567890abcdef1234567890abcdef12345678",
		"too_short": "0x1234",
		"not_hex":   "0xZZ34567890abcdef1234567890abcdef12345678",
	}
	for name, addr := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateAddress(domain.KindEVM, addr))
		})
	}
}

func TestValidateAddress_NoKind(t *testing.T) {
	assert.Error(t, ValidateAddress(domain.KindNone, "anything"))
}
