package domain

import "github.com/shopspring/decimal"

// PerformanceSnapshot is derived from vault state on every successful data
// refresh. It is never mutated in place; each refresh replaces it wholesale.
type PerformanceSnapshot struct {
	CurrentBalance decimal.Decimal
	TotalDeposits  decimal.Decimal
	PnL            decimal.Decimal // balance + withdrawals - deposits
	PnLPercent     float64         // pnl / deposits * 100, 0 when deposits are 0
}

// HistoryPoint is one bucket of an interpolated performance series.
type HistoryPoint struct {
	Timestamp int64 // Unix timestamp (seconds)
	Value     decimal.Decimal
}

// RiskProfile carries heuristic risk proxies derived from PnLPercent alone.
// The coefficients are placeholder business rules, not historical statistics.
type RiskProfile struct {
	Volatility  float64 `json:"volatility"`  // >= 0
	SharpeRatio float64 `json:"sharpeRatio"` // >= 0
	MaxDrawdown float64 `json:"maxDrawdown"` // >= 0
	Beta        float64 `json:"beta"`
	Alpha       float64 `json:"alpha"`
}
