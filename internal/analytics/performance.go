// Package analytics computes derived performance metrics from normalized
// vault state. Every function here is pure: same input, same output, no
// clock or I/O. The history and risk series are deterministic placeholder
// approximations; no real per-vault event log is available client-side.
package analytics

import (
	"autovault/internal/domain"
)

// Derive computes the performance snapshot for a vault.
//
// pnl = balance + totalWithdrawals - totalDeposits
// pnlPercent = pnl / totalDeposits * 100, defined as 0 when deposits are 0.
func Derive(v domain.Vault) domain.PerformanceSnapshot {
	pnl := v.Balance.Add(v.TotalWithdrawals).Sub(v.TotalDeposits)

	pnlPercent := 0.0
	if v.TotalDeposits.IsPositive() {
		pnlPercent = pnl.Div(v.TotalDeposits).InexactFloat64() * 100
	}

	return domain.PerformanceSnapshot{
		CurrentBalance: v.Balance,
		TotalDeposits:  v.TotalDeposits,
		PnL:            pnl,
		PnLPercent:     pnlPercent,
	}
}
