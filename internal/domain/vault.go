package domain

import "github.com/shopspring/decimal"

// Vault represents one user-owned autonomous strategy container.
// All state is chain-authoritative; this struct is a read-through copy.
type Vault struct {
	ID               string          // opaque handle, unique per owner
	Owner            string          // account address
	Name             string          // display name
	Strategy         string          // strategy reference by name
	Balance          decimal.Decimal // current value, >= 0
	TotalDeposits    decimal.Decimal // cumulative, monotonically non-decreasing
	TotalWithdrawals decimal.Decimal // cumulative, monotonically non-decreasing
	IsActive         bool
	LastExecution    int64 // Unix timestamp (seconds), 0 = never executed
	CreatedAt        int64 // Unix timestamp (seconds)
}

// HasExecuted reports whether the autonomous strategy has run at least once.
func (v Vault) HasExecuted() bool {
	return v.LastExecution > 0
}
