package txflow

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"autovault/internal/chain"
	"autovault/internal/domain"
	"autovault/internal/normalize"
	"autovault/internal/wallet"
)

// Orchestrator errors.
var (
	// ErrBusy is returned when a dispatch arrives while the machine is not
	// Idle. A terminal state requires an explicit Reset first; checking
	// Current() before dispatching is the caller's side of the contract -
	// the orchestrator rejects, it does not queue.
	ErrBusy = errors.New("a transaction is already in flight or awaiting reset")

	// ErrInFlight is returned by Reset while a transaction is still
	// executing or pending.
	ErrInFlight = errors.New("cannot reset while a transaction is in flight")
)

// CreateVault opens a new vault on a strategy with an initial deposit.
type CreateVault struct {
	Name       string
	StrategyID string
	Amount     decimal.Decimal
}

// Deposit adds funds to an existing vault.
type Deposit struct {
	VaultID string
	Amount  decimal.Decimal
}

// Withdraw removes funds from an existing vault.
type Withdraw struct {
	VaultID string
	Amount  decimal.Decimal
}

// SetActive pauses or resumes a vault's autonomous execution.
type SetActive struct {
	VaultID string
	Active  bool
}

// Orchestrator is the single process-wide transaction lifecycle machine.
// Only the orchestrator mutates its state; everything else observes. One
// orchestrated transaction may be in flight at a time.
type Orchestrator struct {
	gateway chain.Gateway
	auth    wallet.Authorizer
	logger  *log.Logger

	mu        sync.Mutex
	state     State
	observers []chan State
}

// New creates an idle orchestrator.
func New(gateway chain.Gateway, auth wallet.Authorizer, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[txflow] ", log.LstdFlags)
	}
	return &Orchestrator{
		gateway: gateway,
		auth:    auth,
		logger:  logger,
		state:   State{Phase: PhaseIdle},
	}
}

// Current returns a snapshot of the machine state.
func (o *Orchestrator) Current() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Observe yields every state transition until ctx is done. Slow observers
// miss intermediate transitions rather than blocking the machine.
func (o *Orchestrator) Observe(ctx context.Context) <-chan State {
	ch := make(chan State, 32)

	o.mu.Lock()
	o.observers = append(o.observers, ch)
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		for i, obs := range o.observers {
			if obs == ch {
				o.observers = append(o.observers[:i], o.observers[i+1:]...)
				close(ch)
				break
			}
		}
		o.mu.Unlock()
	}()

	return ch
}

// Reset returns a terminal machine to Idle. Resetting an idle machine is a
// no-op; resetting a running one is an error.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state.Phase {
	case PhaseIdle:
		return nil
	case PhaseExecuting, PhasePending:
		return ErrInFlight
	}

	o.state = State{Phase: PhaseIdle}
	o.publishLocked()
	return nil
}

// DispatchCreateVault validates and runs a create-vault action. The caller
// supplies the chosen strategy (for the minimum-deposit rule) and its known
// available account balance.
func (o *Orchestrator) DispatchCreateVault(ctx context.Context, p CreateVault, strategy domain.Strategy, available decimal.Decimal) error {
	return o.dispatch(ctx, ActionCreateVault, func() *Failure {
		if f := validAmount(p.Amount); f != nil {
			return f
		}
		if p.Amount.LessThan(strategy.MinDeposit) {
			return validationFailure("Initial deposit of " + normalize.FormatAmount(p.Amount) +
				" is below the strategy minimum of " + normalize.FormatAmount(strategy.MinDeposit) + ".")
		}
		if p.Amount.GreaterThan(available) {
			return insufficientBalance(p.Amount, available, "available balance")
		}
		return nil
	}, chain.DescCreateVault,
		chain.StringArg("name", p.Name),
		chain.StringArg("strategyId", p.StrategyID),
		chain.UFix64Arg("amount", p.Amount),
	)
}

// DispatchDeposit validates and runs a deposit into an existing vault.
func (o *Orchestrator) DispatchDeposit(ctx context.Context, p Deposit, available decimal.Decimal) error {
	return o.dispatch(ctx, ActionDeposit, func() *Failure {
		if f := validAmount(p.Amount); f != nil {
			return f
		}
		if p.Amount.GreaterThan(available) {
			return insufficientBalance(p.Amount, available, "available balance")
		}
		return nil
	}, chain.DescDeposit,
		chain.StringArg("vaultId", p.VaultID),
		chain.UFix64Arg("amount", p.Amount),
	)
}

// DispatchWithdraw validates and runs a withdrawal from a vault.
func (o *Orchestrator) DispatchWithdraw(ctx context.Context, p Withdraw, vault domain.Vault) error {
	return o.dispatch(ctx, ActionWithdraw, func() *Failure {
		if f := validAmount(p.Amount); f != nil {
			return f
		}
		if p.Amount.GreaterThan(vault.Balance) {
			return insufficientBalance(p.Amount, vault.Balance, "vault balance")
		}
		return nil
	}, chain.DescWithdraw,
		chain.StringArg("vaultId", p.VaultID),
		chain.UFix64Arg("amount", p.Amount),
	)
}

// DispatchSetActive pauses or resumes a vault. No amount to validate.
func (o *Orchestrator) DispatchSetActive(ctx context.Context, p SetActive) error {
	return o.dispatch(ctx, ActionSetActive, func() *Failure {
		return nil
	}, chain.DescSetActive,
		chain.StringArg("vaultId", p.VaultID),
		chain.BoolArg("active", p.Active),
	)
}

// dispatch enforces the single-in-flight invariant, runs build-phase
// validation, and on success drives the sign/submit/finality lifecycle in
// the background. Validation violations enter the terminal Error state
// immediately without contacting the gateway and are also returned.
func (o *Orchestrator) dispatch(ctx context.Context, action Action, validate func() *Failure, desc chain.Descriptor, args ...chain.Arg) error {
	actionID := uuid.NewString()

	o.mu.Lock()
	if o.state.Phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBusy
	}

	if failure := validate(); failure != nil {
		o.state = State{Phase: PhaseError, Action: action, ActionID: actionID, Failure: failure}
		o.publishLocked()
		o.mu.Unlock()
		o.logger.Printf("action %s (%s) rejected: %s", action, actionID, failure.Detail)
		return failure
	}

	o.state = State{Phase: PhaseExecuting, Action: action, ActionID: actionID}
	o.publishLocked()
	o.mu.Unlock()

	// The lifecycle outlives the dispatching call: a request-scoped ctx
	// expiring must not abort a transaction that may already be signed.
	go o.run(context.WithoutCancel(ctx), action, actionID, desc, args)
	return nil
}

// run executes the sign -> submit -> await-finality lifecycle.
func (o *Orchestrator) run(ctx context.Context, action Action, actionID string, desc chain.Descriptor, args []chain.Arg) {
	payload, err := json.Marshal(struct {
		Method string      `json:"method"`
		Args   []chain.Arg `json:"args"`
	}{Method: desc.Method, Args: args})
	if err != nil {
		o.fail(actionID, classify(err, ""))
		return
	}

	if _, err := o.auth.Sign(ctx, payload); err != nil {
		o.logger.Printf("action %s (%s): signing failed: %v", action, actionID, err)
		o.fail(actionID, classify(err, ""))
		return
	}

	sub, err := o.gateway.Mutate(ctx, desc, args...)
	if err != nil {
		o.logger.Printf("action %s (%s): broadcast failed: %v", action, actionID, err)
		o.fail(actionID, classify(err, ""))
		return
	}

	o.transition(actionID, func(s *State) {
		s.Phase = PhasePending
		s.SubmissionID = sub.ID
	})
	o.logger.Printf("action %s (%s): pending as %s", action, actionID, sub.ID)

	if _, err := sub.Wait(ctx); err != nil {
		o.logger.Printf("action %s (%s): finality failed: %v", action, actionID, err)
		o.fail(actionID, classify(err, sub.ID))
		return
	}

	o.transition(actionID, func(s *State) {
		s.Phase = PhaseSealed
	})
	o.logger.Printf("action %s (%s): sealed as %s", action, actionID, sub.ID)
}

// transition applies fn to the state if the action is still the current
// one, then publishes.
func (o *Orchestrator) transition(actionID string, fn func(*State)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.ActionID != actionID {
		return
	}
	fn(&o.state)
	o.publishLocked()
}

func (o *Orchestrator) fail(actionID string, failure *Failure) {
	o.transition(actionID, func(s *State) {
		s.Phase = PhaseError
		s.Failure = failure
		if failure.SubmissionID == "" {
			failure.SubmissionID = s.SubmissionID
		}
	})
}

// publishLocked fans the current state out to observers. Caller holds mu.
func (o *Orchestrator) publishLocked() {
	for _, obs := range o.observers {
		select {
		case obs <- o.state:
		default:
		}
	}
}

// validAmount enforces the shared build-phase rule: positive and finite.
func validAmount(amount decimal.Decimal) *Failure {
	if !amount.IsPositive() {
		return validationFailure("Amount must be a positive number.")
	}
	return nil
}

func insufficientBalance(requested, limit decimal.Decimal, what string) *Failure {
	return validationFailure("Insufficient balance: " + normalize.FormatAmount(requested) +
		" exceeds the " + what + " of " + normalize.FormatAmount(limit) + ".")
}
