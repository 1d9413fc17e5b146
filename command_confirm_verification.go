package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ConfirmVerificationMessage struct {
	ICNumber   string              `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	Code       int                 `json:"verification_code" example:"4821" doc:"4 digit verification code."`
	Purpose    VerificationPurpose `json:"verification_type" example:"sms" doc:"Channel the code was issued for."`
	OnResponse func(*ConfirmVerificationResponse)
}

func (e ConfirmVerificationMessage) Type() string { return "account.confirm_verification" }

type ConfirmVerificationResponse struct {
	Message string `json:"message"`
}

// ConfirmVerificationHandler consumes a verification code and marks the
// matching contact channel confirmed. A wrong, expired, or already used code
// all fail the same way: the response never discloses which check tripped.
type ConfirmVerificationHandler struct {
	repo   RepositoryManager
	now    func() time.Time
	logger Logger
}

// NewConfirmVerificationHandler creates a handler with default collaborators.
func NewConfirmVerificationHandler(repo RepositoryManager) *ConfirmVerificationHandler {
	return &ConfirmVerificationHandler{
		repo:   repo,
		now:    time.Now,
		logger: defLogger{},
	}
}

func (h *ConfirmVerificationHandler) WithClock(clock func() time.Time) *ConfirmVerificationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *ConfirmVerificationHandler) WithLogger(logger Logger) *ConfirmVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmVerificationHandler) Execute(ctx context.Context, event ConfirmVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification code confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmVerificationHandler) execute(ctx context.Context, event ConfirmVerificationMessage) error {
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

		code, err := h.repo.VerificationCodes().GetActiveTx(ctx, tx, user.ID, event.Code, event.Purpose, h.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidCode
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification code")
		}

		// compare-and-set on is_used: of two racing confirmations with
		// the same code, only one proceeds
		if err := h.repo.VerificationCodes().ConsumeTx(ctx, tx, code.ID, h.now()); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidCode
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
		}

		if !user.MarkConfirmed(event.Purpose) {
			h.logger.Warn("no confirmation flag for verification type %s", event.Purpose)
		}

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			return ErrUserUpdateFailed
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification code confirmation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ConfirmVerificationResponse{
			Message: "Verification successful.",
		})
	}

	return nil
}
