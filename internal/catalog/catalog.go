// Package catalog fetches and shapes the strategy registry. The registry
// is maintained externally; the catalog is fetched in bulk per session and
// filtered/sorted client-side.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/shopspring/decimal"

	"autovault/internal/chain"
	"autovault/internal/domain"
	"autovault/internal/normalize"
)

// ErrUnavailable is returned when the registry cannot be reached. It is
// distinct from an empty catalog, which is a valid "no data yet" result.
var ErrUnavailable = errors.New("strategy catalog unavailable")

// Service fetches the strategy catalog through the chain gateway.
type Service struct {
	gateway chain.Gateway
	logger  *log.Logger
}

// NewService creates a catalog service.
func NewService(gateway chain.Gateway, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[catalog] ", log.LstdFlags)
	}
	return &Service{gateway: gateway, logger: logger}
}

// List fetches and normalizes the full catalog. Invalid records are
// dropped; a transport failure returns ErrUnavailable.
func (s *Service) List(ctx context.Context) ([]domain.Strategy, error) {
	raw := s.gateway.Query(ctx, chain.DescStrategyList)
	if raw == nil {
		return nil, ErrUnavailable
	}

	records, err := normalize.DecodeStrategyList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return normalize.NormalizeStrategies(records, s.logger), nil
}

// FilterOptions selects a subset of the catalog. Zero values impose no
// constraint.
type FilterOptions struct {
	Category     domain.Category
	MaxRisk      domain.RiskLevel
	MinAPY       decimal.Decimal
	FeaturedOnly bool
	VerifiedOnly bool
	ActiveOnly   bool
}

// Filter returns the strategies matching opts, preserving input order.
func Filter(strategies []domain.Strategy, opts FilterOptions) []domain.Strategy {
	result := make([]domain.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		if opts.MaxRisk != 0 && s.RiskLevel > opts.MaxRisk {
			continue
		}
		if opts.MinAPY.IsPositive() && s.ExpectedAPY.LessThan(opts.MinAPY) {
			continue
		}
		if opts.FeaturedOnly && !s.Featured {
			continue
		}
		if opts.VerifiedOnly && !s.Verified {
			continue
		}
		if opts.ActiveOnly && !s.IsActive {
			continue
		}
		result = append(result, s)
	}
	return result
}

// SortKey orders a catalog listing.
type SortKey int

// Sort keys, all descending (highest first).
const (
	SortByAPY SortKey = iota
	SortByTVL
	SortByParticipants
)

// Sort returns a copy sorted by key descending, with name as a stable
// tiebreak.
func Sort(strategies []domain.Strategy, key SortKey) []domain.Strategy {
	result := make([]domain.Strategy, len(strategies))
	copy(result, strategies)

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		var cmp int
		switch key {
		case SortByTVL:
			cmp = a.TVL.Cmp(b.TVL)
		case SortByParticipants:
			switch {
			case a.Participants > b.Participants:
				cmp = 1
			case a.Participants < b.Participants:
				cmp = -1
			}
		default:
			cmp = a.ExpectedAPY.Cmp(b.ExpectedAPY)
		}
		if cmp != 0 {
			return cmp > 0
		}
		return a.Name < b.Name
	})

	return result
}
