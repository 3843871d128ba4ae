package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DecodeBalance decodes an account-balance payload: a single decimal
// string, either bare ("12.00000000") or wrapped ({"balance": "..."}).
func DecodeBalance(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}

	var wrapped struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}
	return ParseAmount(wrapped.Balance)
}
