package identity_test

import (
	"context"
	"database/sql"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx registers the call, then drives the closure with a zero-value tx
// so handler logic runs and its error propagates like in the real manager.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Accounts() identity.Accounts {
	args := m.Called()
	return args.Get(0).(identity.Accounts)
}

// MockAccounts implements the store methods the flows exercise; the embedded
// interface covers the rest of the repository surface.
type MockAccounts struct {
	mock.Mock
	identity.Accounts
}

func (m *MockAccounts) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.Account, error) {
	args := m.Called(ctx, tx, email)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) FindByPendingToken(ctx context.Context, token string) (*identity.Account, error) {
	args := m.Called(ctx, token)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) FindByPendingTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.Account, error) {
	args := m.Called(ctx, tx, token)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) Register(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, account)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) RegisterTx(ctx context.Context, tx bun.IDB, account *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, tx, account)
	if record, ok := args.Get(0).(*identity.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, at time.Time) error {
	args := m.Called(ctx, tx, id, token, at)
	return args.Error(0)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token, passwordHash string) error {
	args := m.Called(ctx, tx, id, token, passwordHash)
	return args.Error(0)
}

func (m *MockAccounts) UpdateTx(ctx context.Context, tx bun.IDB, record *identity.Account, criteria ...repository.UpdateCriteria) (*identity.Account, error) {
	args := m.Called(ctx, tx, record, criteria)
	if updated, ok := args.Get(0).(*identity.Account); ok {
		return updated, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockIdentity implements identity.Identity
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockAuthenticator implements identity.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (identity.AuthClaims, error) {
	args := m.Called(token)
	if claims, ok := args.Get(0).(identity.AuthClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if id, ok := args.Get(0).(identity.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	args := m.Called(ctx, email)
	if id, ok := args.Get(0).(identity.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}
