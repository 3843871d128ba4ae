package session

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovault/internal/chain"
	"autovault/internal/chain/stub"
	"autovault/internal/domain"
	"autovault/internal/wallet"
)

const testAddress = "0x1234567890abcdef1234567890abcdef12345678"

func signedIn() domain.Identity {
	return domain.Identity{Kind: domain.KindEVM, Address: testAddress, LoggedIn: true}
}

func scriptedGateway() *stub.Gateway {
	gw := stub.NewGateway()
	gw.SetQueryResult(chain.DescVaultList, []map[string]any{{
		"id":            "v-1",
		"owner":         testAddress,
		"name":          "Alpha",
		"strategy":      "s-1",
		"balance":       "120.00000000",
		"totalDeposits": "100.00000000",
		"isActive":      true,
		"createdAt":     "1700000000",
	}})
	gw.SetQueryResult(chain.DescAccountBalance, "42.00000000")
	return gw
}

func newTestLoader(t *testing.T, gw chain.Gateway, provider wallet.Provider) *Loader {
	t.Helper()
	l := NewLoader(gw, provider, log.New(io.Discard, "", 0))
	l.Start(context.Background())
	t.Cleanup(l.Close)
	return l
}

func TestLoader_SignInLoadsPortfolio(t *testing.T) {
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, scriptedGateway(), provider)

	provider.SetIdentity(signedIn())

	require.Eventually(t, func() bool {
		snap := l.Snapshot()
		return len(snap.Vaults) == 1 && !snap.Loading
	}, 5*time.Second, 10*time.Millisecond)

	snap := l.Snapshot()
	assert.Equal(t, testAddress, snap.Identity.Address)
	assert.Equal(t, "v-1", snap.Vaults[0].ID)
	assert.Equal(t, "42", snap.AvailableBalance.String())
	assert.Empty(t, snap.Err)

	perf, ok := snap.Performance["v-1"]
	require.True(t, ok, "performance is derived for every vault")
	assert.Equal(t, "20", perf.PnL.String())
	assert.InDelta(t, 20.0, perf.PnLPercent, 1e-9)

	risk, ok := snap.Risk["v-1"]
	require.True(t, ok, "risk is derived for every vault")
	assert.GreaterOrEqual(t, risk.Volatility, 0.0)
}

func TestLoader_SignOutClearsEverything(t *testing.T) {
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, scriptedGateway(), provider)

	provider.SetIdentity(signedIn())
	require.Eventually(t, func() bool {
		return len(l.Snapshot().Vaults) == 1
	}, 5*time.Second, 10*time.Millisecond)

	provider.SetIdentity(domain.SignedOut())

	require.Eventually(t, func() bool {
		snap := l.Snapshot()
		return !snap.Identity.LoggedIn && len(snap.Vaults) == 0
	}, 5*time.Second, 10*time.Millisecond)

	snap := l.Snapshot()
	assert.Empty(t, snap.Performance)
	assert.Empty(t, snap.Risk)
	assert.True(t, snap.AvailableBalance.IsZero())
	assert.Empty(t, snap.Err)
}

// gatedGateway blocks every Query until release closes, counting completions.
type gatedGateway struct {
	inner     chain.Gateway
	release   <-chan struct{}
	completed atomic.Int64
}

func (g *gatedGateway) Query(ctx context.Context, desc chain.Descriptor, args ...chain.Arg) json.RawMessage {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil
	}
	defer g.completed.Add(1)
	return g.inner.Query(ctx, desc, args...)
}

func (g *gatedGateway) Mutate(ctx context.Context, desc chain.Descriptor, args ...chain.Arg) (*chain.Submission, error) {
	return g.inner.Mutate(ctx, desc, args...)
}

func TestLoader_SignOutInvalidatesInFlightReload(t *testing.T) {
	release := make(chan struct{})
	gw := &gatedGateway{inner: scriptedGateway(), release: release}
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, gw, provider)

	// Sign in: the reload starts and parks inside the gateway.
	provider.SetIdentity(signedIn())
	require.Eventually(t, func() bool {
		return l.Snapshot().Loading
	}, 5*time.Second, 10*time.Millisecond)

	// Sign out while that reload is still in flight.
	provider.SetIdentity(domain.SignedOut())
	require.Eventually(t, func() bool {
		return !l.Snapshot().Identity.LoggedIn
	}, 5*time.Second, 10*time.Millisecond)

	// Let the stale reload finish; its result must be discarded.
	close(release)
	require.Eventually(t, func() bool {
		return gw.completed.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond) // give the stale commit a chance to (wrongly) land

	snap := l.Snapshot()
	assert.False(t, snap.Identity.LoggedIn)
	assert.Empty(t, snap.Vaults, "data from a previous identity must never surface")
	assert.Empty(t, snap.Performance)
}

func TestLoader_FailureSurfacedThenClearedByRefetch(t *testing.T) {
	gw := stub.NewGateway() // nothing scripted: every query fails
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, gw, provider)

	provider.SetIdentity(signedIn())

	require.Eventually(t, func() bool {
		snap := l.Snapshot()
		return snap.Err != "" && !snap.Loading
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "failed to load vaults", l.Snapshot().Err)

	// The backend recovers; a manual refetch clears the error.
	gw.SetQueryResult(chain.DescVaultList, []map[string]any{})
	gw.SetQueryResult(chain.DescAccountBalance, "0.00000000")
	l.Refetch(context.Background())

	require.Eventually(t, func() bool {
		snap := l.Snapshot()
		return snap.Err == "" && !snap.Loading
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotNil(t, l.Snapshot().Vaults)
}

// cancelAwareGateway blocks until release, then answers nil once the caller
// context is gone, like the real client does.
type cancelAwareGateway struct {
	inner   chain.Gateway
	release <-chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *cancelAwareGateway) Query(ctx context.Context, desc chain.Descriptor, args ...chain.Arg) json.RawMessage {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if ctx.Err() != nil {
		return nil
	}
	return g.inner.Query(ctx, desc, args...)
}

func (g *cancelAwareGateway) Mutate(ctx context.Context, desc chain.Descriptor, args ...chain.Arg) (*chain.Submission, error) {
	return g.inner.Mutate(ctx, desc, args...)
}

func TestLoader_RefetchOutlivesCallerContext(t *testing.T) {
	provider := wallet.NewManualProvider()
	scripted := scriptedGateway()
	l := newTestLoader(t, scripted, provider)

	provider.SetIdentity(signedIn())
	require.Eventually(t, func() bool {
		snap := l.Snapshot()
		return len(snap.Vaults) == 1 && !snap.Loading
	}, 5*time.Second, 10*time.Millisecond)

	// Swap in a gate so the refetch parks inside the gateway, then cancel the
	// caller's context mid-flight, as an HTTP handler returning does.
	release := make(chan struct{})
	gw := &cancelAwareGateway{inner: scripted, release: release, entered: make(chan struct{})}
	l.gateway = gw

	reqCtx, cancel := context.WithCancel(context.Background())
	l.Refetch(reqCtx)
	<-gw.entered
	cancel()
	close(release)

	require.Eventually(t, func() bool {
		return !l.Snapshot().Loading
	}, 5*time.Second, 10*time.Millisecond)

	snap := l.Snapshot()
	assert.Empty(t, snap.Err, "a caller context expiring must not fail the reload")
	require.Len(t, snap.Vaults, 1)
	assert.Equal(t, "v-1", snap.Vaults[0].ID)
}

func TestLoader_RefetchWhileSignedOutIsNoop(t *testing.T) {
	gw := scriptedGateway()
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, gw, provider)

	l.Refetch(context.Background())

	time.Sleep(50 * time.Millisecond)
	snap := l.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Vaults)
}

func TestLoader_SnapshotIsACopy(t *testing.T) {
	provider := wallet.NewManualProvider()
	l := newTestLoader(t, scriptedGateway(), provider)

	provider.SetIdentity(signedIn())
	require.Eventually(t, func() bool {
		return len(l.Snapshot().Vaults) == 1
	}, 5*time.Second, 10*time.Millisecond)

	snap := l.Snapshot()
	snap.Vaults[0].ID = "mutated"
	delete(snap.Performance, "v-1")

	fresh := l.Snapshot()
	assert.Equal(t, "v-1", fresh.Vaults[0].ID)
	assert.Contains(t, fresh.Performance, "v-1")
}
