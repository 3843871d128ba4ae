package normalize

import (
	"encoding/json"
	"fmt"
	"log"

	"autovault/internal/domain"
)

// RawVault is the loosely-typed vault record as returned by the gateway.
// Numeric fields are decimal strings; optional fields may be absent.
type RawVault struct {
	ID               FlexString `json:"id"`
	Owner            string     `json:"owner"`
	Name             string     `json:"name"`
	Strategy         string     `json:"strategy"`
	Balance          string     `json:"balance"`
	TotalDeposits    string     `json:"totalDeposits"`
	TotalWithdrawals string     `json:"totalWithdrawals"`
	IsActive         bool       `json:"isActive"`
	LastExecution    FlexString `json:"lastExecution"`
	CreatedAt        FlexString `json:"createdAt"`
}

// DecodeVaultList decodes a gateway vault-list payload.
func DecodeVaultList(raw json.RawMessage) ([]RawVault, error) {
	var vaults []RawVault
	if err := json.Unmarshal(raw, &vaults); err != nil {
		return nil, fmt.Errorf("decode vault list: %w", err)
	}
	return vaults, nil
}

// NormalizeVault converts one raw record into the strict vault shape.
// Missing ID or Owner makes the whole record invalid; every other field
// falls back to its defined default and never produces an error.
func NormalizeVault(raw RawVault) (domain.Vault, error) {
	if raw.ID == "" {
		return domain.Vault{}, fmt.Errorf("vault record missing id")
	}
	if raw.Owner == "" {
		return domain.Vault{}, fmt.Errorf("vault %s: record missing owner", raw.ID)
	}

	return domain.Vault{
		ID:               string(raw.ID),
		Owner:            raw.Owner,
		Name:             raw.Name,
		Strategy:         raw.Strategy,
		Balance:          amountOrZero(raw.Balance),
		TotalDeposits:    amountOrZero(raw.TotalDeposits),
		TotalWithdrawals: amountOrZero(raw.TotalWithdrawals),
		IsActive:         raw.IsActive,
		LastExecution:    timestampOrZero(raw.LastExecution),
		CreatedAt:        timestampOrZero(raw.CreatedAt),
	}, nil
}

// NormalizeVaults converts a batch, dropping invalid records with a log
// line. A partial result is preferable to no result. An empty input is a
// valid "no data yet" result and returns an empty, non-nil slice.
func NormalizeVaults(raws []RawVault, logger *log.Logger) []domain.Vault {
	if logger == nil {
		logger = log.Default()
	}

	vaults := make([]domain.Vault, 0, len(raws))
	for _, raw := range raws {
		v, err := NormalizeVault(raw)
		if err != nil {
			logger.Printf("[normalize] dropping vault record: %v", err)
			continue
		}
		vaults = append(vaults, v)
	}
	return vaults
}
