package registration_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-registration"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, repo *MockRepositoryManager, dispatcher registration.NotificationDispatcher) *fiber.App {
	t.Helper()

	app := fiber.New()

	registration.RegisterAuthRoutes(app,
		registration.WithControllerRepo(repo),
		registration.WithControllerDispatcher(dispatcher),
		registration.WithControllerCodeSource(&stubCodeSource{codes: []int{4821}}),
		registration.WithControllerLogger(testLogger{}),
	)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, registration.ErrorResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var errBody registration.ErrorResponse
	_ = json.Unmarshal(raw, &errBody)

	return resp, errBody
}

func TestRegisterEndpointValidatesPayload(t *testing.T) {
	repo := &MockRepositoryManager{}
	app := newTestApp(t, repo, newRecordingDispatcher())

	cases := []struct {
		name string
		body string
	}{
		{"short ic number", `{"ic_number":"123","email":"a@b.com","full_name":"Pepe Rone Domingo","phone_number":"+60 12 345 6789"}`},
		{"ic number with letters", `{"ic_number":"90010114556X","email":"a@b.com","full_name":"Pepe Rone Domingo","phone_number":"+60 12 345 6789"}`},
		{"name too short", `{"ic_number":"900101145566","email":"a@b.com","full_name":"Pepe","phone_number":"+60 12 345 6789"}`},
		{"name with digits", `{"ic_number":"900101145566","email":"a@b.com","full_name":"Pepe Rone 99 Domingo","phone_number":"+60 12 345 6789"}`},
		{"bad email", `{"ic_number":"900101145566","email":"not-an-email","full_name":"Pepe Rone Domingo","phone_number":"+60 12 345 6789"}`},
		{"phone wrong shape", `{"ic_number":"900101145566","email":"a@b.com","full_name":"Pepe Rone Domingo","phone_number":"0123456789"}`},
		{"missing everything", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/register", tc.body)
			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
		})
	}

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterEndpointCreatesAccount(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	codes := &MockVerificationCodes{}
	dispatcher := newRecordingDispatcher()

	userID := uuid.New()

	repo.On("Users").Return(users)
	repo.On("VerificationCodes").Return(codes)
	runTxPassthrough(t, repo).Once()

	users.On("GetByICNumberTx", mock.Anything, mock.Anything, "900101145566").
		Return(nil, repository.NewRecordNotFound()).Once()
	users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&registration.User{ID: userID, ICNumber: "900101145566"}, nil).Once()
	codes.On("UpsertByPurposeTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&registration.VerificationCode{UserID: userID, Code: 4821, Purpose: registration.PurposeSMS}, nil).Once()

	app := newTestApp(t, repo, dispatcher)

	body := `{"ic_number":"900101145566","email":"pepe.rone@example.com","full_name":"Pepe Rone Domingo","phone_number":"+60 12 345 6789"}`
	resp, _ := doJSON(t, app, fiber.MethodPost, "/auth/register", body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	delivery := dispatcher.wait(t)
	assert.Equal(t, 4821, delivery.Code)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	codes.AssertExpectations(t)
}

func TestRegisterEndpointMapsMigratedConflict(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}

	repo.On("Users").Return(users)
	runTxCapture(repo).Once()

	users.On("GetByICNumberTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&registration.User{ID: uuid.New(), ICNumber: "900101145566", IsMigrated: true}, nil).Once()

	app := newTestApp(t, repo, newRecordingDispatcher())

	body := `{"ic_number":"900101145566","email":"pepe.rone@example.com","full_name":"Pepe Rone Domingo","phone_number":"+60 12 345 6789"}`
	resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/register", body)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "USER_ALREADY_MIGRATED", errBody.Code)
	assert.Equal(t, fiber.StatusConflict, errBody.StatusCode)
	assert.NotEmpty(t, errBody.Description)
}

func TestConfirmEndpointMapsInvalidCode(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	codes := &MockVerificationCodes{}

	userID := uuid.New()

	repo.On("Users").Return(users)
	repo.On("VerificationCodes").Return(codes)
	runTxCapture(repo).Once()

	users.On("GetByICNumberTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&registration.User{ID: userID, ICNumber: "900101145566"}, nil).Once()
	codes.On("GetActiveTx", mock.Anything, mock.Anything, userID, 4821, registration.PurposeSMS, mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()

	app := newTestApp(t, repo, newRecordingDispatcher())

	body := `{"ic_number":"900101145566","verification_code":4821,"verification_type":"sms"}`
	resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/confirm-verification-code", body)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CODE", errBody.Code)
}

func TestSendCodeEndpointRejectsUnknownChannel(t *testing.T) {
	repo := &MockRepositoryManager{}
	app := newTestApp(t, repo, newRecordingDispatcher())

	body := `{"ic_number":"900101145566","verification_type":"fax"}`
	resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/send-verification-code", body)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
}

func TestSetPINEndpointRequiresMatchingConfirmation(t *testing.T) {
	repo := &MockRepositoryManager{}
	app := newTestApp(t, repo, newRecordingDispatcher())

	body := `{"ic_number":"900101145566","pin":246810,"confirmed_pin":111111}`
	resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/set-pin", body)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
	assert.Contains(t, errBody.Description, "must match")
}

func TestAgreeToTermsEndpointValidatesPathParam(t *testing.T) {
	repo := &MockRepositoryManager{}
	app := newTestApp(t, repo, newRecordingDispatcher())

	resp, errBody := doJSON(t, app, fiber.MethodPatch, "/auth/agree-to-terms/not-an-ic", "")

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
}

func TestAgreeToTermsEndpointSetsFlag(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}

	user := &registration.User{ID: uuid.New(), ICNumber: "900101145566"}

	repo.On("Users").Return(users)
	runTxPassthrough(t, repo).Once()

	users.On("GetByICNumberTx", mock.Anything, mock.Anything, "900101145566").
		Return(user, nil).Once()
	users.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(user, nil).Once()

	app := newTestApp(t, repo, newRecordingDispatcher())

	resp, _ := doJSON(t, app, fiber.MethodPatch, "/auth/agree-to-terms/900101145566", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	users.AssertExpectations(t)
}

func TestLoginEndpointMapsUnknownUser(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}

	repo.On("Users").Return(users)
	users.On("GetByICNumber", mock.Anything, mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()

	app := newTestApp(t, repo, newRecordingDispatcher())

	body := `{"ic_number":"999999999999","pin":246810}`
	resp, errBody := doJSON(t, app, fiber.MethodPost, "/auth/login", body)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "USER_NOT_FOUND", errBody.Code)
}
