package registration

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

var (
	icNumberRule = regexp.MustCompile(`^\d{12}$`)
	fullNameRule = regexp.MustCompile(`^[a-zA-Z ]+$`)
	phoneRule    = regexp.MustCompile(`^\+60 \d{2} \d{3} \d{4}$`)
)

// ErrorResponse is the wire shape of every failed request.
type ErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	StatusCode  int    `json:"statusCode"`
}

type AuthControllerRoutes struct {
	Register        string
	AgreeToTerms    string
	SetPIN          string
	EnableBiometric string
	SendCode        string
	ConfirmCode     string
	Login           string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Routes     *AuthControllerRoutes
	Dispatcher NotificationDispatcher
	Codes      CodeSource
	Minter     TokenMinter
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerDispatcher(d NotificationDispatcher) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Dispatcher = normalizeDispatcher(d)
		return c
	}
}

func WithControllerCodeSource(s CodeSource) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if s != nil {
			c.Codes = s
		}
		return c
	}
}

func WithControllerTokenMinter(m TokenMinter) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if m != nil {
			c.Minter = m
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Codes:  NewRandCodeSource(),
		Minter: NewSimulatedTokenMinter(0, 0),
		Routes: &AuthControllerRoutes{
			Register:        "/auth/register",
			AgreeToTerms:    "/auth/agree-to-terms/:icNumber",
			SetPIN:          "/auth/set-pin",
			EnableBiometric: "/auth/enable-biometric/:icNumber",
			SendCode:        "/auth/send-verification-code",
			ConfirmCode:     "/auth/confirm-verification-code",
			Login:           "/auth/login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Dispatcher == nil {
		c.Dispatcher = NewLogDispatcher(c.Logger)
	}

	return c
}

// RegisterAuthRoutes mounts the migration endpoints on the given router.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Patch(controller.Routes.AgreeToTerms, controller.AgreeToTermsPatch)
	app.Post(controller.Routes.SetPIN, controller.SetPINPost)
	app.Patch(controller.Routes.EnableBiometric, controller.EnableBiometricPatch)
	app.Post(controller.Routes.SendCode, controller.SendCodePost)
	app.Post(controller.Routes.ConfirmCode, controller.ConfirmCodePost)
	app.Post(controller.Routes.Login, controller.LoginPost)
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	ICNumber           string `json:"ic_number"`
	Email              string `json:"email"`
	FullName           string `json:"full_name"`
	DisplayPhoneNumber string `json:"phone_number"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ICNumber, validation.Required, validation.Match(icNumberRule)),
		validation.Field(&r.Email, validation.Required, validation.Length(4, 50), is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(10, 50), validation.Match(fullNameRule)),
		validation.Field(&r.DisplayPhoneNumber, validation.Required, validation.Match(phoneRule)),
	)
}

func (a *AuthController) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewRegisterAccountHandler(a.Repo).
		WithDispatcher(a.Dispatcher).
		WithCodeSource(a.Codes).
		WithLogger(a.Logger)

	var resp *RegisterAccountResponse

	input := RegisterAccountMessage{
		ICNumber:           payload.ICNumber,
		Email:              payload.Email,
		FullName:           payload.FullName,
		DisplayPhoneNumber: payload.DisplayPhoneNumber,
		OnResponse:         func(r *RegisterAccountResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// AgreeToTermsPatch records acceptance for the IC number in the path.
func (a *AuthController) AgreeToTermsPatch(ctx *fiber.Ctx) error {
	icNumber := ctx.Params("icNumber")

	if err := validation.Validate(icNumber, validation.Required, validation.Match(icNumberRule)); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewAgreeToTermsHandler(a.Repo).WithLogger(a.Logger)

	var resp *AgreeToTermsResponse

	input := AgreeToTermsMessage{
		ICNumber:   icNumber,
		OnResponse: func(r *AgreeToTermsResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// SetPINPayload is the PIN enrollment body
type SetPINPayload struct {
	ICNumber     string `json:"ic_number"`
	PIN          int    `json:"pin"`
	ConfirmedPIN int    `json:"confirmed_pin"`
}

// Validate will run validation rules
func (r SetPINPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ICNumber, validation.Required, validation.Match(icNumberRule)),
		validation.Field(&r.PIN, validation.Required, validation.Min(100000), validation.Max(999999)),
		validation.Field(&r.ConfirmedPIN, validation.Required, validation.By(ValidateIntEquals(r.PIN))),
	)
}

func (a *AuthController) SetPINPost(ctx *fiber.Ctx) error {
	payload := new(SetPINPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewSetPINHandler(a.Repo).WithLogger(a.Logger)

	var resp *SetPINResponse

	input := SetPINMessage{
		ICNumber:     payload.ICNumber,
		PIN:          payload.PIN,
		ConfirmedPIN: payload.ConfirmedPIN,
		OnResponse:   func(r *SetPINResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

func (a *AuthController) EnableBiometricPatch(ctx *fiber.Ctx) error {
	icNumber := ctx.Params("icNumber")

	if err := validation.Validate(icNumber, validation.Required, validation.Match(icNumberRule)); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewEnableBiometricHandler(a.Repo).WithLogger(a.Logger)

	var resp *EnableBiometricResponse

	input := EnableBiometricMessage{
		ICNumber:   icNumber,
		OnResponse: func(r *EnableBiometricResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// SendCodePayload is the code issue body
type SendCodePayload struct {
	ICNumber string `json:"ic_number"`
	Purpose  string `json:"verification_type"`
}

// Validate will run validation rules
func (r SendCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ICNumber, validation.Required, validation.Match(icNumberRule)),
		validation.Field(&r.Purpose, validation.Required, validation.In(string(PurposeEmail), string(PurposeSMS))),
	)
}

func (a *AuthController) SendCodePost(ctx *fiber.Ctx) error {
	payload := new(SendCodePayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewSendVerificationHandler(a.Repo).
		WithDispatcher(a.Dispatcher).
		WithCodeSource(a.Codes).
		WithLogger(a.Logger)

	var resp *SendVerificationResponse

	input := SendVerificationMessage{
		ICNumber:   payload.ICNumber,
		Purpose:    VerificationPurpose(payload.Purpose),
		OnResponse: func(r *SendVerificationResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// ConfirmCodePayload is the code confirmation body
type ConfirmCodePayload struct {
	ICNumber string `json:"ic_number"`
	Code     int    `json:"verification_code"`
	Purpose  string `json:"verification_type"`
}

// Validate will run validation rules
func (r ConfirmCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ICNumber, validation.Required, validation.Match(icNumberRule)),
		validation.Field(&r.Code, validation.Required, validation.Min(CodeMin), validation.Max(CodeMax)),
		validation.Field(&r.Purpose, validation.Required, validation.In(string(PurposeEmail), string(PurposeSMS))),
	)
}

func (a *AuthController) ConfirmCodePost(ctx *fiber.Ctx) error {
	payload := new(ConfirmCodePayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewConfirmVerificationHandler(a.Repo).WithLogger(a.Logger)

	var resp *ConfirmVerificationResponse

	input := ConfirmVerificationMessage{
		ICNumber:   payload.ICNumber,
		Code:       payload.Code,
		Purpose:    VerificationPurpose(payload.Purpose),
		OnResponse: func(r *ConfirmVerificationResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// LoginPayload is the login body
type LoginPayload struct {
	ICNumber string `json:"ic_number"`
	PIN      int    `json:"pin"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ICNumber, validation.Required, validation.Match(icNumberRule)),
		validation.Field(&r.PIN, validation.Required, validation.Min(100000), validation.Max(999999)),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, err)
	}

	handler := NewLoginHandler(a.Repo).
		WithTokenMinter(a.Minter).
		WithLogger(a.Logger)

	var resp *AuthResponse

	input := LoginMessage{
		ICNumber:   payload.ICNumber,
		PIN:        payload.PIN,
		OnResponse: func(r *AuthResponse) { resp = r },
	}

	if err := handler.Execute(ctx.Context(), input); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

func (a *AuthController) renderBadPayload(ctx *fiber.Ctx, err error) error {
	if a.Debug {
		a.Logger.Debug("failed to parse request body: %v", err)
	}
	return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:        "INVALID_PAYLOAD",
		Description: "request body could not be parsed",
		StatusCode:  fiber.StatusBadRequest,
	})
}

func (a *AuthController) renderValidation(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Code:        "VALIDATION_ERROR",
		Description: err.Error(),
		StatusCode:  fiber.StatusUnprocessableEntity,
	})
}

// renderError maps domain errors to the published wire taxonomy. Anything
// without a text code is an unexpected failure and comes back generic.
func (a *AuthController) renderError(ctx *fiber.Ctx, err error) error {
	if richErr, ok := AsDomainError(err); ok {
		return ctx.Status(richErr.Code).JSON(ErrorResponse{
			Code:        richErr.TextCode,
			Description: richErr.Message,
			StatusCode:  richErr.Code,
		})
	}

	a.Logger.Error("unexpected error handling %s: %v", ctx.Path(), err)

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Code:        "INTERNAL_ERROR",
		Description: "an unexpected error occurred",
		StatusCode:  fiber.StatusInternalServerError,
	})
}

// ValidateIntEquals will check that both values match
func ValidateIntEquals(want int) validation.RuleFunc {
	return func(value interface{}) error {
		v, _ := value.(int)
		if v != want {
			return errors.New("values must match")
		}
		return nil
	}
}
