package analytics

import (
	"math"

	"autovault/internal/domain"
)

// Placeholder risk coefficients. These are heuristic business rules derived
// from pnlPercent alone, pending a real variance series; the clamps (not
// the coefficients) are the load-bearing part.
const (
	baseVolatility   = 4.0
	volatilitySlope  = 0.35
	sharpeDivisor    = 10.0
	baseDrawdown     = 2.5
	drawdownSlope    = 0.6
	betaSensitivity  = 0.002
	alphaSensitivity = 0.15
)

// DeriveRisk computes heuristic risk proxies from a performance snapshot.
// Deterministic; volatility, Sharpe ratio and max drawdown never go
// negative.
func DeriveRisk(s domain.PerformanceSnapshot) domain.RiskProfile {
	p := s.PnLPercent

	volatility := math.Max(0, baseVolatility+math.Abs(p)*volatilitySlope)
	sharpe := math.Max(0, p/sharpeDivisor)

	// Losses widen the assumed drawdown; gains shrink it, floored at 0.
	drawdown := baseDrawdown
	if p < 0 {
		drawdown += -p * drawdownSlope
	} else {
		drawdown = math.Max(0, drawdown-p*0.05)
	}

	return domain.RiskProfile{
		Volatility:  volatility,
		SharpeRatio: sharpe,
		MaxDrawdown: drawdown,
		Beta:        1 + p*betaSensitivity,
		Alpha:       p * alphaSensitivity,
	}
}
