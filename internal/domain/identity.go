package domain

// WalletKind distinguishes the wallet mechanics behind a session identity.
type WalletKind string

// Wallet kinds.
const (
	KindNone   WalletKind = "none"
	KindNative WalletKind = "native"
	KindEVM    WalletKind = "evm"
)

// Identity is the wallet-bound session identity consumed by the core.
// The zero value is a signed-out session. Kind-specific signing mechanics
// stay behind the wallet provider boundary.
type Identity struct {
	Kind     WalletKind
	Address  string // empty prior to first connection event
	LoggedIn bool
}

// SignedOut returns the canonical signed-out identity.
func SignedOut() Identity {
	return Identity{Kind: KindNone}
}
