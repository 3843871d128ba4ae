package txflow

import (
	"errors"
	"fmt"

	"autovault/internal/chain"
	"autovault/internal/wallet"
)

// FailureKind classifies a terminal Error state.
type FailureKind string

// Failure kinds, mirroring the error taxonomy of the underlying layers.
const (
	FailureValidation      FailureKind = "validation"
	FailureSigningRejected FailureKind = "signing-rejected"
	FailureSubmission      FailureKind = "submission"
	FailureFinality        FailureKind = "finality"
)

// Failure is the user-facing description of a terminal Error state: a short
// title, a one-line explanation, never a raw stack trace. SubmissionID is
// carried when one was obtained before the failure so the user can look the
// transaction up externally.
type Failure struct {
	Kind         FailureKind `json:"kind"`
	Title        string      `json:"title"`
	Detail       string      `json:"detail"`
	SubmissionID string      `json:"submissionId,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Title, f.Detail)
}

// validationFailure builds the immediate terminal failure for a build-phase
// violation.
func validationFailure(detail string) *Failure {
	return &Failure{
		Kind:   FailureValidation,
		Title:  "Invalid request",
		Detail: detail,
	}
}

// classify translates an error from the wallet or gateway boundary into a
// user-facing failure. It is the sole translator; raw transport errors never
// reach the presentation layer.
func classify(err error, submissionID string) *Failure {
	if errors.Is(err, wallet.ErrSigningRejected) {
		return &Failure{
			Kind:   FailureSigningRejected,
			Title:  "Signature declined",
			Detail: "The request was declined in your wallet. No transaction was sent.",
		}
	}

	if errors.Is(err, wallet.ErrNotAuthenticated) {
		return &Failure{
			Kind:   FailureValidation,
			Title:  "No wallet connected",
			Detail: "Connect a wallet before submitting a transaction.",
		}
	}

	var subErr *chain.SubmissionError
	if errors.As(err, &subErr) {
		return &Failure{
			Kind:         FailureSubmission,
			Title:        "Submission failed",
			Detail:       fmt.Sprintf("The gateway rejected the request: %s.", subErr.Message),
			SubmissionID: submissionID,
		}
	}

	var finErr *chain.FinalityError
	if errors.As(err, &finErr) {
		detail := "The transaction was broadcast but its transmission failed."
		if finErr.Timeout {
			detail = "The transaction was broadcast but confirmation timed out."
		} else if finErr.Reason != "" {
			detail = fmt.Sprintf("The transaction failed on-chain: %s.", finErr.Reason)
		}
		return &Failure{
			Kind:         FailureFinality,
			Title:        "Transaction failed",
			Detail:       detail,
			SubmissionID: finErr.SubmissionID,
		}
	}

	if errors.Is(err, chain.ErrTransport) {
		return &Failure{
			Kind:         FailureSubmission,
			Title:        "Submission failed",
			Detail:       "The gateway could not be reached. The transaction was not sent.",
			SubmissionID: submissionID,
		}
	}

	return &Failure{
		Kind:         FailureSubmission,
		Title:        "Transaction failed",
		Detail:       "An unexpected error occurred while submitting the transaction.",
		SubmissionID: submissionID,
	}
}
