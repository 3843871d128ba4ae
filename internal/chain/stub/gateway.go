// Package stub provides a scripted chain.Gateway for testing.
package stub

import (
	"context"
	"encoding/json"

	"autovault/internal/chain"
)

// MutateOutcome scripts the result of one Mutate call.
type MutateOutcome struct {
	SubmissionID string
	Err          error          // returned from Mutate itself when set
	Receipt      *chain.Receipt // resolved by Wait
	WaitErr      error          // rejection of the finality future
}

// Gateway implements chain.Gateway with scripted results and call counters.
type Gateway struct {
	// QueryResults maps descriptor method to the raw result returned.
	// A missing entry yields nil (transport-failure semantics).
	QueryResults map[string]json.RawMessage

	// MutateOutcomes are consumed in order, one per Mutate call.
	// When exhausted, Mutate returns a generic sealed outcome.
	MutateOutcomes []MutateOutcome

	QueryCalls  int
	MutateCalls int

	// LastMutate records the most recent Mutate request.
	LastMutate struct {
		Desc chain.Descriptor
		Args []chain.Arg
	}
}

// NewGateway creates an empty stub gateway.
func NewGateway() *Gateway {
	return &Gateway{
		QueryResults: make(map[string]json.RawMessage),
	}
}

// SetQueryResult scripts the result for a query descriptor.
func (g *Gateway) SetQueryResult(desc chain.Descriptor, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	g.QueryResults[desc.Method] = raw
}

// Query returns the scripted result for the descriptor, or nil.
func (g *Gateway) Query(_ context.Context, desc chain.Descriptor, _ ...chain.Arg) json.RawMessage {
	g.QueryCalls++
	return g.QueryResults[desc.Method]
}

// Mutate consumes the next scripted outcome.
func (g *Gateway) Mutate(_ context.Context, desc chain.Descriptor, args ...chain.Arg) (*chain.Submission, error) {
	g.MutateCalls++
	g.LastMutate.Desc = desc
	g.LastMutate.Args = args

	outcome := MutateOutcome{SubmissionID: "stub-submission", Receipt: &chain.Receipt{Status: chain.StatusSealed}}
	if len(g.MutateOutcomes) > 0 {
		outcome = g.MutateOutcomes[0]
		g.MutateOutcomes = g.MutateOutcomes[1:]
	}

	if outcome.Err != nil {
		return nil, outcome.Err
	}

	receipt, waitErr := outcome.Receipt, outcome.WaitErr
	return chain.NewSubmission(outcome.SubmissionID, func(context.Context) (*chain.Receipt, error) {
		return receipt, waitErr
	}), nil
}

// Verify interface compliance at compile time.
var _ chain.Gateway = (*Gateway)(nil)
