package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type EnableBiometricMessage struct {
	ICNumber   string `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	OnResponse func(*EnableBiometricResponse)
}

func (e EnableBiometricMessage) Type() string { return "account.enable_biometric" }

type EnableBiometricResponse struct {
	Message string `json:"message"`
}

// EnableBiometricHandler turns on biometric login for an account.
// Idempotent: enabling twice leaves the flag set.
type EnableBiometricHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewEnableBiometricHandler(repo RepositoryManager) *EnableBiometricHandler {
	return &EnableBiometricHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *EnableBiometricHandler) WithLogger(logger Logger) *EnableBiometricHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *EnableBiometricHandler) Execute(ctx context.Context, event EnableBiometricMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while updating biometric status",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *EnableBiometricHandler) execute(ctx context.Context, event EnableBiometricMessage) error {
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

		user.BiometricEnabled = true

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			h.logger.Error("failed to update biometric status for %s: %v", event.ICNumber, err)
			return ErrFailedToUpdateBiometricStatus
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "biometric status transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&EnableBiometricResponse{
			Message: "Biometric login enabled.",
		})
	}

	return nil
}
