package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"autovault/internal/domain"
)

// ValidateAddress checks an account address against its wallet kind.
// Native addresses are base58-encoded 32-byte ed25519 public keys and must
// decode to a valid curve point; EVM-style addresses are 0x-prefixed
// 20-byte hex strings.
func ValidateAddress(kind domain.WalletKind, addr string) error {
	switch kind {
	case domain.KindNative:
		return validateNativeAddress(addr)
	case domain.KindEVM:
		return validateEVMAddress(addr)
	case domain.KindNone:
		return fmt.Errorf("no wallet kind for address %q", addr)
	}
	return fmt.Errorf("unknown wallet kind %q", kind)
}

func validateNativeAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("native address %q: %w", addr, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("native address %q: expected 32 bytes, got %d", addr, len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("native address %q: not on curve", addr)
	}
	return nil
}

func validateEVMAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") {
		return fmt.Errorf("evm address %q: missing 0x prefix", addr)
	}
	body := addr[2:]
	if len(body) != 40 {
		return fmt.Errorf("evm address %q: expected 40 hex chars, got %d", addr, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return fmt.Errorf("evm address %q: invalid hex", addr)
	}
	return nil
}
