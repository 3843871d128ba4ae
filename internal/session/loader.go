// Package session binds wallet identity changes to data loads. It is the
// composition point between the gateway, the normalizer and the analytics
// deriver; it owns no business logic of its own.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"autovault/internal/analytics"
	"autovault/internal/chain"
	"autovault/internal/domain"
	"autovault/internal/normalize"
	"autovault/internal/wallet"
)

// PortfolioSnapshot is the view-model state exposed to the presentation
// layer. It is replaced wholesale on every committed reload; consumers get
// copies and never share mutable state.
type PortfolioSnapshot struct {
	Identity         domain.Identity
	Vaults           []domain.Vault
	Performance      map[string]domain.PerformanceSnapshot // keyed by vault ID
	Risk             map[string]domain.RiskProfile         // keyed by vault ID
	AvailableBalance decimal.Decimal

	// Loading is true only while a reload is in flight; a failed reload
	// clears it and sets Err.
	Loading bool

	// Err is the last reload's failure message, cleared on the next
	// successful reload.
	Err string
}

// Loader subscribes to wallet identity changes and keeps the portfolio
// snapshot current. Reloads carry a monotonic sequence number; a reload
// completing out of order discards itself rather than overwriting fresher
// data (last-write-wins), and completions after Close are dropped.
type Loader struct {
	gateway  chain.Gateway
	provider wallet.Provider
	logger   *log.Logger

	mu     sync.Mutex
	snap   PortfolioSnapshot
	seq    uint64 // latest issued reload sequence
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoader creates a loader with an empty, signed-out snapshot.
func NewLoader(gateway chain.Gateway, provider wallet.Provider, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(log.Writer(), "[session] ", log.LstdFlags)
	}
	return &Loader{
		gateway:  gateway,
		provider: provider,
		logger:   logger,
		snap:     emptySnapshot(domain.SignedOut()),
	}
}

// Start subscribes to identity changes and begins reacting to them. A
// signed-in identity triggers a full reload; a signed-out one clears all
// state immediately.
func (l *Loader) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	events := l.provider.Subscribe(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for id := range events {
			if id.LoggedIn {
				l.beginReload(ctx, id)
			} else {
				l.clear()
			}
		}
	}()
}

// Refetch manually triggers a reload for the current identity. It is the
// entry point invoked after a sealed transaction. No-op when signed out.
func (l *Loader) Refetch(ctx context.Context) {
	id := l.provider.Current()
	if !id.LoggedIn {
		return
	}
	// Callers hand in request-scoped contexts; the reload runs in the
	// background and must outlive them or it fails mid-flight and smears a
	// spurious load error over a healthy snapshot.
	l.beginReload(context.WithoutCancel(ctx), id)
}

// Snapshot returns a copy of the current view-model state.
func (l *Loader) Snapshot() PortfolioSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copySnapshot(l.snap)
}

// Close stops the identity subscription and drops any in-flight reloads.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

// beginReload issues a new sequence number, flips Loading, and runs the
// reload in the background so a newer reload can supersede it.
func (l *Loader) beginReload(ctx context.Context, id domain.Identity) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.seq++
	seq := l.seq
	l.snap.Loading = true
	l.snap.Identity = id
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.reload(ctx, id, seq)
	}()
}

// reload fetches vaults and the account balance, derives analytics, and
// commits the result if it is still the freshest reload.
func (l *Loader) reload(ctx context.Context, id domain.Identity, seq uint64) {
	rawVaults := l.gateway.Query(ctx, chain.DescVaultList, chain.StringArg("owner", id.Address))
	if rawVaults == nil {
		l.commitFailure(seq, "failed to load vaults")
		return
	}

	records, err := normalize.DecodeVaultList(rawVaults)
	if err != nil {
		l.logger.Printf("reload %d: %v", seq, err)
		l.commitFailure(seq, "failed to load vaults")
		return
	}
	vaults := normalize.NormalizeVaults(records, l.logger)

	rawBalance := l.gateway.Query(ctx, chain.DescAccountBalance, chain.StringArg("address", id.Address))
	if rawBalance == nil {
		l.commitFailure(seq, "failed to load account balance")
		return
	}
	balance, err := normalize.DecodeBalance(rawBalance)
	if err != nil {
		l.logger.Printf("reload %d: %v", seq, err)
		l.commitFailure(seq, "failed to load account balance")
		return
	}

	performance := make(map[string]domain.PerformanceSnapshot, len(vaults))
	risk := make(map[string]domain.RiskProfile, len(vaults))
	for _, v := range vaults {
		perf := analytics.Derive(v)
		performance[v.ID] = perf
		risk[v.ID] = analytics.DeriveRisk(perf)
	}

	l.commit(seq, PortfolioSnapshot{
		Identity:         id,
		Vaults:           vaults,
		Performance:      performance,
		Risk:             risk,
		AvailableBalance: balance,
	})
}

// commit installs a successful reload unless it has gone stale.
func (l *Loader) commit(seq uint64, snap PortfolioSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || seq != l.seq {
		// Superseded by a newer reload or a sign-out; drop silently.
		return
	}
	l.snap = snap
}

// commitFailure records a retryable load failure unless stale.
func (l *Loader) commitFailure(seq uint64, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || seq != l.seq {
		return
	}
	l.snap.Loading = false
	l.snap.Err = msg
}

// clear resets all state to empty defaults and invalidates every in-flight
// reload. Stale data from a previous identity must never be displayed.
func (l *Loader) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.snap = emptySnapshot(domain.SignedOut())
}

func emptySnapshot(id domain.Identity) PortfolioSnapshot {
	return PortfolioSnapshot{
		Identity:    id,
		Vaults:      []domain.Vault{},
		Performance: map[string]domain.PerformanceSnapshot{},
		Risk:        map[string]domain.RiskProfile{},
	}
}

func copySnapshot(s PortfolioSnapshot) PortfolioSnapshot {
	out := s
	out.Vaults = make([]domain.Vault, len(s.Vaults))
	copy(out.Vaults, s.Vaults)
	out.Performance = make(map[string]domain.PerformanceSnapshot, len(s.Performance))
	for k, v := range s.Performance {
		out.Performance[k] = v
	}
	out.Risk = make(map[string]domain.RiskProfile, len(s.Risk))
	for k, v := range s.Risk {
		out.Risk[k] = v
	}
	return out
}
