package normalize

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNormalizeVault_FullRecord(t *testing.T) {
	raw := RawVault{
		ID:               "1",
		Owner:            "0x1234567890abcdef1234567890abcdef12345678",
		Name:             "Alpha",
		Strategy:         "Lending",
		Balance:          "10.00000000",
		TotalDeposits:    "10.00000000",
		TotalWithdrawals: "0.00000000",
		IsActive:         true,
		LastExecution:    "0",
		CreatedAt:        "1700000000",
	}

	v, err := NormalizeVault(raw)
	require.NoError(t, err)

	assert.Equal(t, "1", v.ID)
	assert.Equal(t, "Alpha", v.Name)
	assert.Equal(t, "Lending", v.Strategy)
	assert.True(t, v.Balance.Equal(decimal.RequireFromString("10")))
	assert.True(t, v.TotalDeposits.Equal(decimal.RequireFromString("10")))
	assert.True(t, v.TotalWithdrawals.IsZero())
	assert.True(t, v.IsActive)
	assert.False(t, v.HasExecuted(), "lastExecution 0 means never executed")
	assert.Equal(t, int64(1700000000), v.CreatedAt)
}

func TestNormalizeVault_MissingID(t *testing.T) {
	_, err := NormalizeVault(RawVault{Owner: "0xabc"})
	require.Error(t, err)
}

func TestNormalizeVault_MissingOwner(t *testing.T) {
	_, err := NormalizeVault(RawVault{ID: "7"})
	require.Error(t, err)
}

func TestNormalizeVault_MalformedOptionalFieldsDefault(t *testing.T) {
	raw := RawVault{
		ID:               "2",
		Owner:            "0xabc",
		Balance:          "not-a-number",
		TotalDeposits:    "",
		TotalWithdrawals: "also bad",
		LastExecution:    "yesterday",
		CreatedAt:        "-5",
	}

	v, err := NormalizeVault(raw)
	require.NoError(t, err, "malformed optional input must not fail the record")

	assert.True(t, v.Balance.IsZero())
	assert.True(t, v.TotalDeposits.IsZero())
	assert.True(t, v.TotalWithdrawals.IsZero())
	assert.Equal(t, int64(0), v.LastExecution)
	assert.Equal(t, int64(0), v.CreatedAt)
}

func TestNormalizeVault_Deterministic(t *testing.T) {
	raw := RawVault{ID: "3", Owner: "0xabc", Balance: "120.50000000", TotalDeposits: "100.00000000"}

	first, err := NormalizeVault(raw)
	require.NoError(t, err)
	second, err := NormalizeVault(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second, "normalization is a pure function")
}

func TestNormalizeVaults_DropsInvalidKeepsValid(t *testing.T) {
	raws := []RawVault{
		{ID: "1", Owner: "0xabc", Balance: "1.00000000"},
		{Owner: "0xabc"}, // missing id
		{ID: "3", Owner: "0xabc", Balance: "3.00000000"},
	}

	vaults := NormalizeVaults(raws, discardLogger())

	require.Len(t, vaults, 2, "a partial result is preferable to no result")
	assert.Equal(t, "1", vaults[0].ID)
	assert.Equal(t, "3", vaults[1].ID)
}

func TestNormalizeVaults_EmptyInputIsValidEmptyResult(t *testing.T) {
	vaults := NormalizeVaults(nil, discardLogger())
	require.NotNil(t, vaults, "no data yet is distinct from a transport failure")
	assert.Empty(t, vaults)
}

func TestDecodeVaultList_NumericIDAndTimestamps(t *testing.T) {
	payload := `[{"id": 42, "owner": "0xabc", "balance": "5.00000000", "createdAt": 1700000000}]`

	raws, err := DecodeVaultList(json.RawMessage(payload))
	require.NoError(t, err)
	require.Len(t, raws, 1)

	v, err := NormalizeVault(raws[0])
	require.NoError(t, err)
	assert.Equal(t, "42", v.ID)
	assert.Equal(t, int64(1700000000), v.CreatedAt)
}

func TestDecodeVaultList_Malformed(t *testing.T) {
	_, err := DecodeVaultList(json.RawMessage(`{"not":"a list"}`))
	require.Error(t, err)
}
