// Package chain is the uniform boundary to the blockchain access layer.
// It exposes two operation kinds: Query (read-only, returns nil on failure,
// never an error) and Mutate (state-changing, returns a submission handle
// plus a finality future).
package chain

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// Descriptor is an opaque request template identifying one gateway operation.
type Descriptor struct {
	Method string
}

// Request descriptors for the operations the dashboard core issues.
var (
	DescVaultList      = Descriptor{Method: "vault_getVaultsByOwner"}
	DescVaultByID      = Descriptor{Method: "vault_getVault"}
	DescStrategyList   = Descriptor{Method: "registry_listStrategies"}
	DescAccountBalance = Descriptor{Method: "account_getBalance"}
	DescTxStatus       = Descriptor{Method: "tx_getStatus"}
	DescCreateVault    = Descriptor{Method: "vault_create"}
	DescDeposit        = Descriptor{Method: "vault_deposit"}
	DescWithdraw       = Descriptor{Method: "vault_withdraw"}
	DescSetActive      = Descriptor{Method: "vault_setActive"}
)

// Arg is one ordered (name, type, value) triple of a gateway request.
// All amounts cross the boundary as decimal strings with 8 fractional digits.
type Arg struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StringArg builds a String-typed argument.
func StringArg(name, value string) Arg {
	return Arg{Name: name, Type: "String", Value: value}
}

// UInt64Arg builds a UInt64-typed argument.
func UInt64Arg(name string, value uint64) Arg {
	return Arg{Name: name, Type: "UInt64", Value: strconv.FormatUint(value, 10)}
}

// UFix64Arg builds a fixed-point amount argument with 8 fractional digits.
func UFix64Arg(name string, value decimal.Decimal) Arg {
	return Arg{Name: name, Type: "UFix64", Value: value.StringFixed(8)}
}

// BoolArg builds a Bool-typed argument.
func BoolArg(name string, value bool) Arg {
	v := "false"
	if value {
		v = "true"
	}
	return Arg{Name: name, Type: "Bool", Value: v}
}

// ReceiptStatus is the terminal outcome of a submitted transaction.
type ReceiptStatus string

// Receipt statuses.
const (
	StatusSealed   ReceiptStatus = "SEALED"
	StatusReverted ReceiptStatus = "REVERTED"
)

// Receipt is the finality result of a submitted transaction.
type Receipt struct {
	Status       ReceiptStatus
	RevertReason string // set when Status is REVERTED, when available
}

// Sealed reports whether the transaction's effect is irreversibly committed.
func (r *Receipt) Sealed() bool {
	return r != nil && r.Status == StatusSealed
}

// Submission is the handle returned by a successful broadcast.
// Wait resolves the finality future; the resolution (success or failure)
// is computed once and cached for subsequent calls.
type Submission struct {
	ID string

	once    sync.Once
	wait    func(ctx context.Context) (*Receipt, error)
	receipt *Receipt
	err     error
}

// NewSubmission creates a submission handle with the given finality wait.
func NewSubmission(id string, wait func(ctx context.Context) (*Receipt, error)) *Submission {
	return &Submission{ID: id, wait: wait}
}

// Wait blocks until the transaction reaches finality or ctx expires.
// Returns a *FinalityError on execution revert or timeout.
func (s *Submission) Wait(ctx context.Context) (*Receipt, error) {
	s.once.Do(func() {
		s.receipt, s.err = s.wait(ctx)
	})
	return s.receipt, s.err
}

// Gateway is the chain access boundary consumed by the rest of the core.
//
// Query never returns an error: transport and decoding failures are logged
// and reported as a nil result. Callers must treat nil as "unknown", not
// "empty" - an empty result set decodes to an empty (non-nil) JSON value.
//
// Mutate submits exactly once and never retries: a retry could double-submit
// a funds-moving operation. Failures surface as typed errors for the
// transaction orchestrator to translate.
type Gateway interface {
	Query(ctx context.Context, desc Descriptor, args ...Arg) json.RawMessage
	Mutate(ctx context.Context, desc Descriptor, args ...Arg) (*Submission, error)
}
