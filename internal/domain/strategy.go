package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category classifies a strategy template.
type Category string

// Known strategy categories.
const (
	CategoryLiquidStaking Category = "liquid-staking"
	CategoryYieldFarming  Category = "yield-farming"
	CategoryLending       Category = "lending"
	CategoryArbitrage     Category = "arbitrage"
)

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryLiquidStaking, CategoryYieldFarming, CategoryLending, CategoryArbitrage:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown strategy category %q", s)
}

// RiskLevel is an ordinal risk rating: 1=low, 2=medium, 3=high.
type RiskLevel int

// Risk levels.
const (
	RiskLow    RiskLevel = 1
	RiskMedium RiskLevel = 2
	RiskHigh   RiskLevel = 3
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return fmt.Sprintf("risk(%d)", int(r))
}

// Strategy is a catalog entry describing an investable template.
// Maintained by an external registry; read-only client-side.
type Strategy struct {
	ID           string
	Name         string
	Description  string
	Category     Category
	RiskLevel    RiskLevel
	ExpectedAPY  decimal.Decimal // percent
	TVL          decimal.Decimal
	MinDeposit   decimal.Decimal
	Participants int // non-negative
	Featured     bool
	Verified     bool
	IsActive     bool
}
