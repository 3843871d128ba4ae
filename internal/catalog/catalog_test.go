package catalog

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovault/internal/chain"
	"autovault/internal/chain/stub"
	"autovault/internal/domain"
)

func testStrategies() []domain.Strategy {
	return []domain.Strategy{
		{
			ID: "s-1", Name: "Blue Stake", Category: domain.CategoryLiquidStaking,
			RiskLevel: domain.RiskLow, ExpectedAPY: decimal.NewFromFloat(4.5),
			TVL: decimal.NewFromInt(5_000_000), Participants: 900,
			Featured: true, Verified: true, IsActive: true,
		},
		{
			ID: "s-2", Name: "Farm Max", Category: domain.CategoryYieldFarming,
			RiskLevel: domain.RiskHigh, ExpectedAPY: decimal.NewFromFloat(21.0),
			TVL: decimal.NewFromInt(800_000), Participants: 150,
			Verified: true, IsActive: true,
		},
		{
			ID: "s-3", Name: "Lend Core", Category: domain.CategoryLending,
			RiskLevel: domain.RiskMedium, ExpectedAPY: decimal.NewFromFloat(7.2),
			TVL: decimal.NewFromInt(2_500_000), Participants: 430,
			Featured: true, IsActive: false,
		},
		{
			ID: "s-4", Name: "Arb One", Category: domain.CategoryArbitrage,
			RiskLevel: domain.RiskHigh, ExpectedAPY: decimal.NewFromFloat(7.2),
			TVL: decimal.NewFromInt(2_500_000), Participants: 430,
			IsActive: true,
		},
	}
}

func TestList_NormalizesAndDrops(t *testing.T) {
	gw := stub.NewGateway()
	gw.SetQueryResult(chain.DescStrategyList, []map[string]any{
		{"id": "s-1", "category": "lending", "riskLevel": "2", "expectedAPY": "7.20000000"},
		{"id": "s-2", "category": "time-travel"}, // unknown category: dropped
	})
	svc := NewService(gw, log.New(io.Discard, "", 0))

	strategies, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, "s-1", strategies[0].ID)
	assert.Equal(t, domain.RiskMedium, strategies[0].RiskLevel)
}

func TestList_UnavailableOnTransportFailure(t *testing.T) {
	svc := NewService(stub.NewGateway(), log.New(io.Discard, "", 0))
	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestList_EmptyCatalogIsNotAnError(t *testing.T) {
	gw := stub.NewGateway()
	gw.SetQueryResult(chain.DescStrategyList, []map[string]any{})
	svc := NewService(gw, log.New(io.Discard, "", 0))

	strategies, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, strategies)
	assert.Empty(t, strategies)
}

func TestFilter(t *testing.T) {
	all := testStrategies()

	ids := func(ss []domain.Strategy) []string {
		out := make([]string, len(ss))
		for i, s := range ss {
			out[i] = s.ID
		}
		return out
	}

	cases := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no_constraints", FilterOptions{}, []string{"s-1", "s-2", "s-3", "s-4"}},
		{"by_category", FilterOptions{Category: domain.CategoryLending}, []string{"s-3"}},
		{"max_risk", FilterOptions{MaxRisk: domain.RiskMedium}, []string{"s-1", "s-3"}},
		{"min_apy", FilterOptions{MinAPY: decimal.NewFromInt(7)}, []string{"s-2", "s-3", "s-4"}},
		{"featured", FilterOptions{FeaturedOnly: true}, []string{"s-1", "s-3"}},
		{"verified_active", FilterOptions{VerifiedOnly: true, ActiveOnly: true}, []string{"s-1", "s-2"}},
		{"no_match", FilterOptions{Category: domain.CategoryArbitrage, MaxRisk: domain.RiskLow}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(all, tc.opts)))
		})
	}
}

func TestSort(t *testing.T) {
	all := testStrategies()

	byAPY := Sort(all, SortByAPY)
	assert.Equal(t, "s-2", byAPY[0].ID)
	// Equal APY: name breaks the tie ("Arb One" < "Lend Core").
	assert.Equal(t, "s-4", byAPY[1].ID)
	assert.Equal(t, "s-3", byAPY[2].ID)
	assert.Equal(t, "s-1", byAPY[3].ID)

	byTVL := Sort(all, SortByTVL)
	assert.Equal(t, "s-1", byTVL[0].ID)
	assert.Equal(t, "s-2", byTVL[3].ID)

	byParticipants := Sort(all, SortByParticipants)
	assert.Equal(t, "s-1", byParticipants[0].ID)
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	all := testStrategies()
	_ = Sort(all, SortByAPY)
	assert.Equal(t, "s-1", all[0].ID, "Sort must operate on a copy")
}
