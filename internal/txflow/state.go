// Package txflow drives the multi-phase lifecycle of a user-initiated
// chain action: build and validate parameters, obtain a signature, submit,
// and await finality, exposing every phase transition to observers.
package txflow

// Phase is one state of the transaction lifecycle machine.
//
//	Idle -> Executing -> Pending -> Sealed
//	        Executing -> Error
//	                     Pending -> Error
//
// Sealed and Error are terminal until an explicit Reset; the machine never
// auto-resets.
type Phase int

// Lifecycle phases.
const (
	PhaseIdle Phase = iota
	PhaseExecuting
	PhasePending
	PhaseSealed
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseExecuting:
		return "executing"
	case PhasePending:
		return "pending"
	case PhaseSealed:
		return "sealed"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// Terminal reports whether the phase only leaves via Reset.
func (p Phase) Terminal() bool {
	return p == PhaseSealed || p == PhaseError
}

// Action names the user operation driving the lifecycle.
type Action string

// User actions.
const (
	ActionCreateVault Action = "create-vault"
	ActionDeposit     Action = "deposit"
	ActionWithdraw    Action = "withdraw"
	ActionSetActive   Action = "set-active"
)

// State is one observable snapshot of the lifecycle machine.
type State struct {
	Phase  Phase
	Action Action

	// ActionID correlates log lines and observers for one dispatch.
	ActionID string

	// SubmissionID is set once broadcast is accepted and retained through
	// Sealed and Error for explorer-link display.
	SubmissionID string

	// Failure is set only in PhaseError.
	Failure *Failure
}
