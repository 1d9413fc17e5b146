package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SetPINMessage struct {
	ICNumber     string `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	PIN          int    `json:"pin" example:"246810" doc:"6 digit PIN."`
	ConfirmedPIN int    `json:"confirmed_pin" example:"246810" doc:"Must match pin."`
	OnResponse   func(*SetPINResponse)
}

func (e SetPINMessage) Type() string { return "account.set_pin" }

type SetPINResponse struct {
	Message string `json:"message"`
}

// SetPINHandler stores the account PIN and completes migration. Gated on
// both contact channels being confirmed; the account transitions to the
// migrated state when the PIN lands.
type SetPINHandler struct {
	repo    RepositoryManager
	machine AccountStateMachine
	logger  Logger
}

func NewSetPINHandler(repo RepositoryManager) *SetPINHandler {
	return &SetPINHandler{
		repo:    repo,
		machine: NewAccountStateMachine(),
		logger:  defLogger{},
	}
}

func (h *SetPINHandler) WithStateMachine(sm AccountStateMachine) *SetPINHandler {
	if sm != nil {
		h.machine = sm
	}
	return h
}

func (h *SetPINHandler) WithLogger(logger Logger) *SetPINHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SetPINHandler) Execute(ctx context.Context, event SetPINMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while setting PIN",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetPINHandler) execute(ctx context.Context, event SetPINMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByICNumberTx(ctx, tx, event.ICNumber)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account by ic number")
		}

		if !user.BothConfirmed() {
			return ErrEmailOrPhoneNotConfirmed
		}

		if err := h.machine.Guard(user, StateMigrated); err != nil {
			return err
		}

		hash, err := HashPIN(formatPIN(event.PIN))
		if err != nil {
			h.logger.Error("failed to hash PIN for %s: %v", event.ICNumber, err)
			return ErrFailedToUpdatePIN
		}

		user.PINHash = hash
		user.IsMigrated = true

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			h.logger.Error("failed to store PIN for %s: %v", event.ICNumber, err)
			return ErrFailedToUpdatePIN
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "set PIN transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&SetPINResponse{
			Message: "PIN set successfully. Migration complete.",
		})
	}

	return nil
}
