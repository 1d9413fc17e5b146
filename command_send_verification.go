package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SendVerificationMessage struct {
	ICNumber   string              `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	Purpose    VerificationPurpose `json:"verification_type" example:"sms" doc:"Delivery channel: email or sms."`
	OnResponse func(*SendVerificationResponse)
}

func (e SendVerificationMessage) Type() string { return "account.send_verification" }

type SendVerificationResponse struct {
	Message string `json:"message"`
}

// SendVerificationHandler issues a verification code for an account and a
// purpose. Issuing while a code for the same (account, purpose) pair is
// still active overwrites it in place: only the most recent code can ever
// confirm. Resend is the same operation.
type SendVerificationHandler struct {
	repo       RepositoryManager
	dispatcher NotificationDispatcher
	codes      CodeSource
	now        func() time.Time
	logger     Logger
}

// NewSendVerificationHandler creates a handler with default collaborators.
func NewSendVerificationHandler(repo RepositoryManager) *SendVerificationHandler {
	return &SendVerificationHandler{
		repo:       repo,
		dispatcher: NewLogDispatcher(nil),
		codes:      NewRandCodeSource(),
		now:        time.Now,
		logger:     defLogger{},
	}
}

func (h *SendVerificationHandler) WithDispatcher(d NotificationDispatcher) *SendVerificationHandler {
	h.dispatcher = normalizeDispatcher(d)
	return h
}

func (h *SendVerificationHandler) WithCodeSource(s CodeSource) *SendVerificationHandler {
	if s != nil {
		h.codes = s
	}
	return h
}

func (h *SendVerificationHandler) WithClock(clock func() time.Time) *SendVerificationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *SendVerificationHandler) WithLogger(logger Logger) *SendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SendVerificationHandler) Execute(ctx context.Context, event SendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification code issue",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendVerificationHandler) execute(ctx context.Context, event SendVerificationMessage) error {
	if !IsValidPurpose(event.Purpose) {
		return goerrors.New("invalid verification type", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"verification_type": string(event.Purpose)})
	}

	var account *User
	var issued *VerificationCode

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

		if issued, err = issueCodeTx(ctx, tx, h.repo.VerificationCodes(), h.codes, h.now, user, event.Purpose); err != nil {
			return err
		}

		account = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification code issue transaction failed")
	}

	go normalizeDispatcher(h.dispatcher).Dispatch(context.Background(), account, event.Purpose, issued.Code)

	if event.OnResponse != nil {
		event.OnResponse(&SendVerificationResponse{
			Message: "Verification code sent.",
		})
	}

	return nil
}
