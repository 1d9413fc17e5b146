package registration

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	ICNumber           string `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	Email              string `json:"email" example:"pepe.rone@example.com" doc:"Contact email."`
	FullName           string `json:"full_name" example:"Pepe Rone Domingo" doc:"Full legal name."`
	DisplayPhoneNumber string `json:"display_phone_number" example:"+60 12 345 6789" doc:"Display formatted phone number."`
	OnResponse         func(*RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Message       string `json:"message"`
	MigrationFlow bool   `json:"migration_flow"`
}

// RegisterAccountHandler creates an account for an unknown IC number, or
// overwrites the mutable fields of an existing unmigrated one. Both paths
// finish by issuing a fresh SMS verification code. A migrated account is
// terminal: registration fails without touching the row.
type RegisterAccountHandler struct {
	repo       RepositoryManager
	machine    AccountStateMachine
	dispatcher NotificationDispatcher
	codes      CodeSource
	now        func() time.Time
	logger     Logger
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:       repo,
		machine:    NewAccountStateMachine(),
		dispatcher: NewLogDispatcher(nil),
		codes:      NewRandCodeSource(),
		now:        time.Now,
		logger:     defLogger{},
	}
}

// WithDispatcher sets the outbound notification dispatcher.
func (h *RegisterAccountHandler) WithDispatcher(d NotificationDispatcher) *RegisterAccountHandler {
	h.dispatcher = normalizeDispatcher(d)
	return h
}

// WithCodeSource overrides the verification code source.
func (h *RegisterAccountHandler) WithCodeSource(s CodeSource) *RegisterAccountHandler {
	if s != nil {
		h.codes = s
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *RegisterAccountHandler) WithClock(clock func() time.Time) *RegisterAccountHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

// WithStateMachine overrides the account state machine.
func (h *RegisterAccountHandler) WithStateMachine(sm AccountStateMachine) *RegisterAccountHandler {
	if sm != nil {
		h.machine = sm
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	resp := &RegisterAccountResponse{}
	account := &User{}

	var issued *VerificationCode

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByICNumberTx(ctx, tx, event.ICNumber)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account by ic number")
		}

		if user != nil {
			if err := h.machine.Guard(user, StateUnmigrated); err != nil {
				h.logger.Warn("account %s has already been migrated", event.ICNumber)
				return ErrUserAlreadyMigrated
			}

			h.applyRequest(user, event)

			if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
				h.logger.Error("failed to update account %s: %v", event.ICNumber, err)
				return ErrUserUpdateFailed
			}

			resp.MigrationFlow = true
			resp.Message = "User is in migration flow. Verification code sent."
		} else {
			user = &User{ICNumber: strings.TrimSpace(event.ICNumber)}
			h.applyRequest(user, event)

			if err := h.machine.Guard(nil, StateUnmigrated); err != nil {
				return err
			}

			if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
				h.logger.Error("account creation failed for %s: %v", event.ICNumber, err)
				return ErrUserCreationFailed
			}

			resp.Message = "Verification code sent via SMS."
		}

		if issued, err = issueCodeTx(ctx, tx, h.repo.VerificationCodes(), h.codes, h.now, user, PurposeSMS); err != nil {
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	// delivery happens off the request path, never awaited
	go normalizeDispatcher(h.dispatcher).Dispatch(context.Background(), account, PurposeSMS, issued.Code)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterAccountHandler) applyRequest(user *User, event RegisterAccountMessage) {
	user.Email = strings.ToLower(strings.TrimSpace(event.Email))
	user.FullName = event.FullName
	user.DisplayPhoneNumber = event.DisplayPhoneNumber
	user.PhoneNumber = NormalizePhoneNumber(event.DisplayPhoneNumber)
}
