package chain

import (
	"errors"
	"fmt"
)

// ErrTransport marks gateway unreachable / timeout failures. Query recovers
// from these locally; Mutate wraps them so errors.Is still matches.
var ErrTransport = errors.New("gateway transport failure")

// SubmissionError is returned when the gateway rejects a state-changing
// request before broadcast.
type SubmissionError struct {
	Code    int
	Message string
}

func (e *SubmissionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("submission rejected (%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("submission rejected: %s", e.Message)
}

// FinalityError is returned when a broadcast transaction fails on-chain
// execution or the finality wait is cut short.
type FinalityError struct {
	SubmissionID string
	Reason       string // revert reason when available
	Timeout      bool
}

func (e *FinalityError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transaction %s: finality wait timed out", e.SubmissionID)
	}
	if e.Reason != "" {
		return fmt.Sprintf("transaction %s reverted: %s", e.SubmissionID, e.Reason)
	}
	return fmt.Sprintf("transaction %s: transmission failed", e.SubmissionID)
}
