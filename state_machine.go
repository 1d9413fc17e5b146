package registration

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from the
// migrated state, which is terminal for the registration flow.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// AccountStateMachine validates lifecycle transitions for accounts. States
// are never persisted; they are derived from the account flags on demand, so
// the machine only guards which derived state an operation may move toward.
type AccountStateMachine interface {
	CurrentState(user *User) AccountState
	CanTransition(from, to AccountState) bool
	Guard(user *User, target AccountState) error
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger used for guard rejections.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation.
//
// The transition table mirrors the migration flow: a fresh IC number
// registers into unmigrated, re-registration overwrites in place, and PIN
// enrollment completes the migration. Nothing leaves migrated.
func NewAccountStateMachine(opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		transitions: map[AccountState]map[AccountState]struct{}{
			StateUnregistered: {
				StateUnmigrated: {},
			},
			StateUnmigrated: {
				StateUnmigrated: {},
				StateMigrated:   {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	transitions map[AccountState]map[AccountState]struct{}
	now         func() time.Time
	logger      Logger
}

func (sm *accountStateMachine) CurrentState(user *User) AccountState {
	return DeriveAccountState(user)
}

func (sm *accountStateMachine) CanTransition(from, to AccountState) bool {
	if from == to && from != StateUnregistered {
		return true
	}
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Guard checks whether user may move to target. Self-transitions on existing
// accounts are no-ops and always pass.
func (sm *accountStateMachine) Guard(user *User, target AccountState) error {
	from := DeriveAccountState(user)

	if target == "" {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target state is empty",
		})
	}

	if from == target && from != StateUnregistered {
		return nil
	}

	if from == StateMigrated {
		sm.logger.Debug("blocked transition away from migrated state at %s", sm.now().Format(time.RFC3339))
		return ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !sm.CanTransition(from, target) {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	return nil
}
