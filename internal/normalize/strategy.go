package normalize

import (
	"encoding/json"
	"fmt"
	"log"

	"autovault/internal/domain"
)

// RawStrategy is the loosely-typed catalog record as returned by the
// strategy registry.
type RawStrategy struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	RiskLevel    FlexString `json:"riskLevel"`
	ExpectedAPY  string     `json:"expectedAPY"`
	TVL          string     `json:"tvl"`
	MinDeposit   string     `json:"minDeposit"`
	Participants FlexString `json:"participants"`
	Featured     bool       `json:"featured"`
	Verified     bool       `json:"verified"`
	IsActive     bool       `json:"isActive"`
}

// DecodeStrategyList decodes a gateway strategy-list payload.
func DecodeStrategyList(raw json.RawMessage) ([]RawStrategy, error) {
	var strategies []RawStrategy
	if err := json.Unmarshal(raw, &strategies); err != nil {
		return nil, fmt.Errorf("decode strategy list: %w", err)
	}
	return strategies, nil
}

// NormalizeStrategy converts one raw catalog record. ID and a known
// category are structurally required; riskLevel defaults to 1 (low) and
// every numeric field defaults to 0 when absent or unparsable.
func NormalizeStrategy(raw RawStrategy) (domain.Strategy, error) {
	if raw.ID == "" {
		return domain.Strategy{}, fmt.Errorf("strategy record missing id")
	}
	category, err := domain.ParseCategory(raw.Category)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("strategy %s: %w", raw.ID, err)
	}

	risk := domain.RiskLevel(countOrZero(raw.RiskLevel))
	if risk < domain.RiskLow || risk > domain.RiskHigh {
		risk = domain.RiskLow
	}

	return domain.Strategy{
		ID:           string(raw.ID),
		Name:         raw.Name,
		Description:  raw.Description,
		Category:     category,
		RiskLevel:    risk,
		ExpectedAPY:  amountOrZero(raw.ExpectedAPY),
		TVL:          amountOrZero(raw.TVL),
		MinDeposit:   amountOrZero(raw.MinDeposit),
		Participants: countOrZero(raw.Participants),
		Featured:     raw.Featured,
		Verified:     raw.Verified,
		IsActive:     raw.IsActive,
	}, nil
}

// NormalizeStrategies converts a batch, dropping invalid records with a
// log line rather than failing the whole catalog.
func NormalizeStrategies(raws []RawStrategy, logger *log.Logger) []domain.Strategy {
	if logger == nil {
		logger = log.Default()
	}

	strategies := make([]domain.Strategy, 0, len(raws))
	for _, raw := range raws {
		s, err := NormalizeStrategy(raw)
		if err != nil {
			logger.Printf("[normalize] dropping strategy record: %v", err)
			continue
		}
		strategies = append(strategies, s)
	}
	return strategies
}
