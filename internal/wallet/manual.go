package wallet

import (
	"context"
	"sync"

	"autovault/internal/domain"
)

// ManualProvider is an in-memory Provider driven by explicit SetIdentity
// calls. It backs tests and local development where no wallet bridge runs.
type ManualProvider struct {
	mu      sync.Mutex
	current domain.Identity
	subs    []chan domain.Identity

	// AuthIdentity is the identity Authenticate switches to.
	AuthIdentity domain.Identity

	// RejectSigning makes Sign return ErrSigningRejected.
	RejectSigning bool
}

// NewManualProvider creates a signed-out manual provider.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{current: domain.SignedOut()}
}

// Current returns the identity as of the last SetIdentity.
func (p *ManualProvider) Current() domain.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe yields the current identity immediately, then every change.
func (p *ManualProvider) Subscribe(ctx context.Context) <-chan domain.Identity {
	ch := make(chan domain.Identity, 16)

	p.mu.Lock()
	ch <- p.current
	p.subs = append(p.subs, ch)
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		for i, sub := range p.subs {
			if sub == ch {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				close(ch)
				break
			}
		}
		p.mu.Unlock()
	}()

	return ch
}

// SetIdentity publishes a new identity to all subscribers.
func (p *ManualProvider) SetIdentity(id domain.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = id
	for _, sub := range p.subs {
		select {
		case sub <- id:
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
	}
}

// Authenticate switches to AuthIdentity.
func (p *ManualProvider) Authenticate(context.Context) error {
	p.mu.Lock()
	auth := p.AuthIdentity
	p.mu.Unlock()

	p.SetIdentity(auth)
	return nil
}

// Deauthenticate switches to the signed-out identity.
func (p *ManualProvider) Deauthenticate(context.Context) error {
	p.SetIdentity(domain.SignedOut())
	return nil
}

// Identity returns the signing identity, or ErrNotAuthenticated.
func (p *ManualProvider) Identity() (domain.Identity, error) {
	id := p.Current()
	if !id.LoggedIn {
		return domain.Identity{}, ErrNotAuthenticated
	}
	return id, nil
}

// Sign authorizes a payload; the manual provider echoes it back unless
// RejectSigning is set.
func (p *ManualProvider) Sign(_ context.Context, payload []byte) ([]byte, error) {
	p.mu.Lock()
	reject := p.RejectSigning
	p.mu.Unlock()

	if reject {
		return nil, ErrSigningRejected
	}
	if _, err := p.Identity(); err != nil {
		return nil, err
	}
	return payload, nil
}

// Verify interface compliance at compile time.
var (
	_ Provider   = (*ManualProvider)(nil)
	_ Authorizer = (*ManualProvider)(nil)
)
