package registration

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type LoginMessage struct {
	ICNumber   string `json:"ic_number" example:"900101145566" doc:"12 digit IC number."`
	PIN        int    `json:"pin" example:"246810" doc:"6 digit PIN."`
	OnResponse func(*AuthResponse)
}

func (e LoginMessage) Type() string { return "account.login" }

// AuthResponse is the login payload handed back to the client. UserID is the
// IC number, the identity the client authenticated with.
type AuthResponse struct {
	FullName               string `json:"full_name"`
	Token                  string `json:"token"`
	UserID                 string `json:"user_id"`
	TokenExpiration        int    `json:"token_expiration"`
	RefreshToken           string `json:"refresh_token"`
	RefreshTokenExpiration int    `json:"refresh_token_expiration"`
}

// LoginHandler authenticates an account by IC number and PIN. Checks run in
// a fixed order: account lookup, contact confirmation, then the PIN hash.
// Read only, so no transaction.
type LoginHandler struct {
	repo   RepositoryManager
	minter TokenMinter
	logger Logger
}

func NewLoginHandler(repo RepositoryManager) *LoginHandler {
	return &LoginHandler{
		repo:   repo,
		minter: NewSimulatedTokenMinter(0, 0),
		logger: defLogger{},
	}
}

// WithTokenMinter swaps the placeholder minter for a signing one.
func (h *LoginHandler) WithTokenMinter(m TokenMinter) *LoginHandler {
	if m != nil {
		h.minter = m
	}
	return h
}

func (h *LoginHandler) WithLogger(logger Logger) *LoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	user, err := h.repo.Users().GetByICNumber(ctx, event.ICNumber)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account by ic number")
	}

	if !user.BothConfirmed() {
		return ErrEmailOrPhoneNotConfirmed
	}

	if err := ComparePINAndHash(formatPIN(event.PIN), user.PINHash); err != nil {
		h.logger.Warn("failed login attempt for %s", event.ICNumber)
		return ErrInvalidPIN
	}

	token, tokenTTL, err := h.minter.MintAccessToken(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint access token")
	}

	refresh, refreshTTL, err := h.minter.MintRefreshToken(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint refresh token")
	}

	if event.OnResponse != nil {
		event.OnResponse(&AuthResponse{
			FullName:               user.FullName,
			Token:                  token,
			UserID:                 user.ICNumber,
			TokenExpiration:        tokenTTL,
			RefreshToken:           refresh,
			RefreshTokenExpiration: refreshTTL,
		})
	}

	return nil
}
