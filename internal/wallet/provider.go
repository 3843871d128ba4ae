// Package wallet is the wallet-provider boundary. The core consumes only a
// signed-in address and a signing capability; kind-specific mechanics
// (extension flows, passkeys) stay on the far side of Provider.
package wallet

import (
	"context"
	"errors"

	"autovault/internal/domain"
)

// ErrSigningRejected is returned when the user declines to sign. It is a
// user decision, not a system fault, and must stay distinguishable from
// other failures.
var ErrSigningRejected = errors.New("signing rejected by user")

// ErrNotAuthenticated is returned when a signing capability is requested
// without a signed-in identity.
var ErrNotAuthenticated = errors.New("no authenticated identity")

// Provider is the subscription interface to the wallet session.
// Every Identity field may be its zero value prior to the first connection
// event.
type Provider interface {
	// Current returns the identity as of the last change notification.
	Current() domain.Identity

	// Subscribe yields the current identity immediately, then every change
	// until ctx is done. The channel is closed on teardown.
	Subscribe(ctx context.Context) <-chan domain.Identity

	Authenticate(ctx context.Context) error
	Deauthenticate(ctx context.Context) error
}

// Authorizer is the narrow signing capability consumed by the transaction
// orchestrator.
type Authorizer interface {
	// Identity returns the signing identity, or ErrNotAuthenticated.
	Identity() (domain.Identity, error)

	// Sign authorizes a request payload. Returns ErrSigningRejected when
	// the user declines.
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}
