package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type AgreeToTermsMessage struct {
	ICNumber   string `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	OnResponse func(*AgreeToTermsResponse)
}

func (e AgreeToTermsMessage) Type() string { return "account.agree_to_terms" }

type AgreeToTermsResponse struct {
	Message string `json:"message"`
}

// AgreeToTermsHandler records the account's acceptance of the terms of
// service. Idempotent: accepting twice leaves the flag set.
type AgreeToTermsHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewAgreeToTermsHandler(repo RepositoryManager) *AgreeToTermsHandler {
	return &AgreeToTermsHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *AgreeToTermsHandler) WithLogger(logger Logger) *AgreeToTermsHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AgreeToTermsHandler) Execute(ctx context.Context, event AgreeToTermsMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during terms agreement",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AgreeToTermsHandler) execute(ctx context.Context, event AgreeToTermsMessage) error {
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

		user.HasAgreedToTerms = true

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			h.logger.Error("failed to record terms agreement for %s: %v", event.ICNumber, err)
			return ErrFailedToUpdateAgreement
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "terms agreement transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&AgreeToTermsResponse{
			Message: "Agreement updated successfully.",
		})
	}

	return nil
}
