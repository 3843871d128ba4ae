package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"autovault/internal/domain"
)

// BridgeConfig configures the wallet bridge connection.
type BridgeConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the reconnect backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for ping frames.
	PingInterval time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// RequestTimeout bounds each command round trip (authenticate, sign).
	RequestTimeout time.Duration
}

// DefaultBridgeConfig returns the default bridge configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestTimeout:    120 * time.Second, // signing waits on a human
	}
}

// bridgeEvent is one frame pushed by the wallet bridge.
type bridgeEvent struct {
	Type string `json:"type"` // "identity" | "response"

	// identity fields
	LoggedIn   bool   `json:"loggedIn"`
	Address    string `json:"address,omitempty"`
	WalletKind string `json:"walletKind,omitempty"`

	// response fields
	ID        uint64 `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
	Rejected  bool   `json:"rejected,omitempty"`
	Signature string `json:"signature,omitempty"` // base64
}

// bridgeCommand is one frame sent to the wallet bridge.
type bridgeCommand struct {
	ID      uint64 `json:"id"`
	Op      string `json:"op"` // "authenticate" | "deauthenticate" | "sign"
	Payload string `json:"payload,omitempty"`
}

// BridgeProvider implements Provider and Authorizer over a persistent
// WebSocket connection to a wallet-bridge endpoint. The bridge pushes
// identity-change events and answers signing requests.
type BridgeProvider struct {
	endpoint string
	config   BridgeConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	closed    atomic.Bool
	requestID atomic.Uint64

	mu      sync.Mutex
	current domain.Identity
	subs    []chan domain.Identity

	// pending maps command ID to the channel awaiting its response.
	pending   map[uint64]chan bridgeEvent
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewBridgeProvider connects to the wallet bridge and starts the read and
// ping loops.
func NewBridgeProvider(ctx context.Context, endpoint string, config *BridgeConfig, logger *log.Logger) (*BridgeProvider, error) {
	cfg := DefaultBridgeConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[wallet-bridge] ", log.LstdFlags)
	}

	p := &BridgeProvider{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		current:  domain.SignedOut(),
		pending:  make(map[uint64]chan bridgeEvent),
		done:     make(chan struct{}),
	}

	if err := p.connect(ctx); err != nil {
		return nil, err
	}

	p.wg.Add(2)
	go p.readLoop()
	go p.pingLoop()

	return p, nil
}

func (p *BridgeProvider) connect(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("wallet bridge dial: %w", err)
	}
	p.conn = conn
	return nil
}

// Current returns the identity as of the last bridge event.
func (p *BridgeProvider) Current() domain.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe yields the current identity immediately, then every change.
func (p *BridgeProvider) Subscribe(ctx context.Context) <-chan domain.Identity {
	ch := make(chan domain.Identity, 16)

	p.mu.Lock()
	ch <- p.current
	p.subs = append(p.subs, ch)
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-p.done:
		}
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

// Authenticate asks the bridge to start its sign-in flow.
func (p *BridgeProvider) Authenticate(ctx context.Context) error {
	_, err := p.roundTrip(ctx, bridgeCommand{Op: "authenticate"})
	return err
}

// Deauthenticate asks the bridge to end the wallet session.
func (p *BridgeProvider) Deauthenticate(ctx context.Context) error {
	_, err := p.roundTrip(ctx, bridgeCommand{Op: "deauthenticate"})
	return err
}

// Identity returns the signing identity, or ErrNotAuthenticated.
func (p *BridgeProvider) Identity() (domain.Identity, error) {
	id := p.Current()
	if !id.LoggedIn {
		return domain.Identity{}, ErrNotAuthenticated
	}
	return id, nil
}

// Sign forwards the payload to the wallet for user approval. A declined
// request maps to ErrSigningRejected.
func (p *BridgeProvider) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	if _, err := p.Identity(); err != nil {
		return nil, err
	}

	resp, err := p.roundTrip(ctx, bridgeCommand{
		Op:      "sign",
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return nil, err
	}
	if resp.Rejected {
		return nil, ErrSigningRejected
	}
	sig, err := base64.StdEncoding.DecodeString(resp.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return sig, nil
}

// roundTrip sends a command and waits for its response event.
func (p *BridgeProvider) roundTrip(ctx context.Context, cmd bridgeCommand) (bridgeEvent, error) {
	if p.closed.Load() {
		return bridgeEvent{}, fmt.Errorf("wallet bridge closed")
	}

	cmd.ID = p.requestID.Add(1)

	respCh := make(chan bridgeEvent, 1)
	p.pendingMu.Lock()
	p.pending[cmd.ID] = respCh
	p.pendingMu.Unlock()

	drop := func() {
		p.pendingMu.Lock()
		delete(p.pending, cmd.ID)
		p.pendingMu.Unlock()
	}

	p.connMu.Lock()
	if p.conn == nil {
		p.connMu.Unlock()
		drop()
		return bridgeEvent{}, fmt.Errorf("wallet bridge not connected")
	}
	p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	err := p.conn.WriteJSON(cmd)
	p.connMu.Unlock()
	if err != nil {
		drop()
		return bridgeEvent{}, fmt.Errorf("write %s command: %w", cmd.Op, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != "" {
			return bridgeEvent{}, fmt.Errorf("%s failed: %s", cmd.Op, resp.Error)
		}
		return resp, nil
	case <-time.After(p.config.RequestTimeout):
		drop()
		return bridgeEvent{}, fmt.Errorf("%s timed out", cmd.Op)
	case <-p.done:
		return bridgeEvent{}, fmt.Errorf("wallet bridge closed")
	case <-ctx.Done():
		drop()
		return bridgeEvent{}, ctx.Err()
	}
}

// readLoop consumes bridge frames until shutdown, reconnecting on error.
func (p *BridgeProvider) readLoop() {
	defer p.wg.Done()

	delay := p.config.ReconnectDelay

	for {
		p.connMu.Lock()
		conn := p.conn
		p.connMu.Unlock()

		if conn == nil {
			return
		}

		var event bridgeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if p.closed.Load() {
				return
			}
			p.logger.Printf("read failed, reconnecting: %v", err)

			select {
			case <-p.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > p.config.MaxReconnectDelay {
				delay = p.config.MaxReconnectDelay
			}

			if err := p.connect(context.Background()); err != nil {
				p.logger.Printf("reconnect failed: %v", err)
				continue
			}
			delay = p.config.ReconnectDelay
			// The bridge replays the current identity on connect, so no
			// explicit resubscribe is needed.
			continue
		}

		switch event.Type {
		case "identity":
			p.publishIdentity(event)
		case "response":
			p.pendingMu.Lock()
			ch, ok := p.pending[event.ID]
			if ok {
				delete(p.pending, event.ID)
			}
			p.pendingMu.Unlock()
			if ok {
				ch <- event
			}
		default:
			p.logger.Printf("unknown bridge frame type %q", event.Type)
		}
	}
}

func (p *BridgeProvider) publishIdentity(event bridgeEvent) {
	id := domain.Identity{
		Kind:     domain.WalletKind(event.WalletKind),
		Address:  event.Address,
		LoggedIn: event.LoggedIn,
	}
	if !event.LoggedIn {
		id = domain.SignedOut()
	} else if id.Kind == "" {
		id.Kind = domain.KindNative
	}

	// The bridge is a remote peer; never accept a signed-in identity whose
	// address does not check out for its wallet kind.
	if id.LoggedIn {
		if err := ValidateAddress(id.Kind, id.Address); err != nil {
			p.logger.Printf("ignoring identity event: %v", err)
			return
		}
	}

	p.mu.Lock()
	p.current = id
	for _, sub := range p.subs {
		select {
		case sub <- id:
		default:
		}
	}
	p.mu.Unlock()
}

// pingLoop keeps the connection alive.
func (p *BridgeProvider) pingLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.connMu.Lock()
			if p.conn != nil {
				p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
				if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					p.logger.Printf("ping failed: %v", err)
				}
			}
			p.connMu.Unlock()
		}
	}
}

// Close tears down the connection and all subscriptions.
func (p *BridgeProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)

	p.connMu.Lock()
	var err error
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	p.connMu.Unlock()

	p.wg.Wait()
	return err
}

// Verify interface compliance at compile time.
var (
	_ Provider   = (*BridgeProvider)(nil)
	_ Authorizer = (*BridgeProvider)(nil)
)
