package registration_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-registration"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers implements registration.Users for the methods the handlers
// exercise; the embedded interface panics on anything unexpected.
type MockUsers struct {
	mock.Mock
	registration.Users
}

func (m *MockUsers) GetByICNumber(ctx context.Context, icNumber string) (*registration.User, error) {
	args := m.Called(ctx, icNumber)
	user, _ := args.Get(0).(*registration.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByICNumberTx(ctx context.Context, tx bun.IDB, icNumber string) (*registration.User, error) {
	args := m.Called(ctx, tx, icNumber)
	user, _ := args.Get(0).(*registration.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *registration.User, criteria ...repository.InsertCriteria) (*registration.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	user, _ := args.Get(0).(*registration.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *registration.User, criteria ...repository.UpdateCriteria) (*registration.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	user, _ := args.Get(0).(*registration.User)
	return user, args.Error(1)
}

// MockVerificationCodes implements registration.VerificationCodes the same
// way.
type MockVerificationCodes struct {
	mock.Mock
	registration.VerificationCodes
}

func (m *MockVerificationCodes) GetByPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose registration.VerificationPurpose) (*registration.VerificationCode, error) {
	args := m.Called(ctx, tx, userID, purpose)
	code, _ := args.Get(0).(*registration.VerificationCode)
	return code, args.Error(1)
}

func (m *MockVerificationCodes) GetActiveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code int, purpose registration.VerificationPurpose, now time.Time) (*registration.VerificationCode, error) {
	args := m.Called(ctx, tx, userID, code, purpose, now)
	record, _ := args.Get(0).(*registration.VerificationCode)
	return record, args.Error(1)
}

func (m *MockVerificationCodes) UpsertByPurposeTx(ctx context.Context, tx bun.IDB, record *registration.VerificationCode) (*registration.VerificationCode, error) {
	args := m.Called(ctx, tx, record)
	code, _ := args.Get(0).(*registration.VerificationCode)
	return code, args.Error(1)
}

func (m *MockVerificationCodes) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, tx, id, now)
	return args.Error(0)
}

// MockRepositoryManager implements registration.RepositoryManager.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Users() registration.Users {
	args := m.Called()
	return args.Get(0).(registration.Users)
}

func (m *MockRepositoryManager) VerificationCodes() registration.VerificationCodes {
	args := m.Called()
	return args.Get(0).(registration.VerificationCodes)
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

// runTxPassthrough wires a RunInTx expectation that simply executes the
// callback with a zero tx, the way the handlers see a committed transaction.
func runTxPassthrough(t *testing.T, repo *MockRepositoryManager) *mock.Call {
	t.Helper()
	return repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		})
}

// runTxCapture executes the callback and hands its error back to the caller
// the way bun would on rollback.
func runTxCapture(repo *MockRepositoryManager) *mock.Call {
	call := repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything)
	call.Run(func(args mock.Arguments) {
		fn := args.Get(2).(func(context.Context, bun.Tx) error)
		var tx bun.Tx
		call.ReturnArguments = mock.Arguments{fn(args.Get(0).(context.Context), tx)}
	})
	return call
}

type dispatchCall struct {
	User    *registration.User
	Purpose registration.VerificationPurpose
	Code    int
}

// recordingDispatcher captures fire-and-forget deliveries; handlers invoke
// Dispatch from a goroutine, so waiters block on the channel.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	ch    chan dispatchCall
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{ch: make(chan dispatchCall, 8)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, user *registration.User, purpose registration.VerificationPurpose, code int) {
	call := dispatchCall{User: user, Purpose: purpose, Code: code}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
	d.ch <- call
}

func (d *recordingDispatcher) wait(t *testing.T) dispatchCall {
	t.Helper()
	select {
	case call := <-d.ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		return dispatchCall{}
	}
}

// stubCodeSource yields a fixed sequence of codes.
type stubCodeSource struct {
	codes []int
	idx   int
}

func (s *stubCodeSource) Next() int {
	code := s.codes[s.idx%len(s.codes)]
	s.idx++
	return code
}
