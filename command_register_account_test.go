package identity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandlerSuccess(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accounts := &MockAccounts{}
	sink := &MockActivitySink{}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	accountID := uuid.New()

	sent := make(chan string, 1)
	notifier := identity.NotifierFunc(func(_ context.Context, to, subject, body string) error {
		sent <- body
		return nil
	})

	handler := identity.NewRegisterAccountHandler(repo).
		WithTokenGenerator(identity.TokenGeneratorFunc(func() string { return "confirm-token" })).
		WithNotifier(notifier).
		WithLinkBuilder(identity.NewLinkBuilder("https://app.example.com")).
		WithActivitySink(sink).
		WithLogger(testLogger{}).
		WithBcryptCost(4).
		WithConfirmationTTL(time.Hour).
		WithClock(func() time.Time { return now })

	repo.On("Accounts").Return(accounts)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

	accounts.On("FindByEmailTx", mock.Anything, mock.Anything, "new@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	expiry := now.Add(time.Hour)
	accounts.On("RegisterTx", mock.Anything, mock.Anything, mock.MatchedBy(func(a *identity.Account) bool {
		return a.Email == "new@example.com" &&
			a.PendingTokenKind == identity.PendingConfirmation &&
			a.PendingToken == "confirm-token" &&
			a.PendingTokenExpiry != nil &&
			a.PendingTokenExpiry.Equal(expiry) &&
			a.PasswordHash != "" &&
			a.PasswordHash != "password12345"
	})).Return(&identity.Account{
		ID:     accountID,
		Name:   "Pat",
		Email:  "new@example.com",
		Role:   identity.RoleUser,
		Status: identity.StatusUnconfirmed,
	}, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventAccountRegistered &&
			evt.AccountID == accountID.String()
	})).Return(nil).Once()

	var res *identity.RegisterAccountResponse

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		Name:     "Pat",
		Email:    "new@example.com",
		Password: "password12345",
		OnResponse: func(resp *identity.RegisterAccountResponse) {
			res = resp
		},
	})
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.True(t, res.Success)
	require.NotNil(t, res.Account)
	assert.Equal(t, accountID.String(), res.Account.ID)
	assert.Equal(t, "user", res.Account.Role)
	assert.Equal(t, "unconfirmed", res.Account.Status)

	select {
	case body := <-sent:
		assert.Contains(t, body, "https://app.example.com/auth/confirm-email?token=confirm-token")
	case <-time.After(2 * time.Second):
		t.Fatal("expected confirmation notification")
	}

	repo.AssertExpectations(t)
	accounts.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestRegisterAccountHandlerDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accounts := &MockAccounts{}

	handler := identity.NewRegisterAccountHandler(repo).
		WithLogger(testLogger{}).
		WithBcryptCost(4)

	repo.On("Accounts").Return(accounts)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

	accounts.On("FindByEmailTx", mock.Anything, mock.Anything, "taken@example.com").
		Return(&identity.Account{ID: uuid.New(), Email: "taken@example.com"}, nil).Once()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		Email:    "taken@example.com",
		Password: "password12345",
	})
	require.Error(t, err)
	assert.True(t, identity.IsConflict(err))

	accounts.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterAccountHandlerDuplicateCaughtByConstraint(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accounts := &MockAccounts{}

	handler := identity.NewRegisterAccountHandler(repo).
		WithLogger(testLogger{}).
		WithBcryptCost(4)

	repo.On("Accounts").Return(accounts)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

	// the pre-check misses a concurrent insert; the store reports the
	// unique violation as the same conflict
	accounts.On("FindByEmailTx", mock.Anything, mock.Anything, "racy@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()
	accounts.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, identity.ErrEmailConflict).Once()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		Email:    "racy@example.com",
		Password: "password12345",
	})
	require.Error(t, err)
	assert.True(t, identity.IsConflict(err))
}

func TestRegisterAccountHandlerValidatesInput(t *testing.T) {
	repo := &MockRepositoryManager{}
	handler := identity.NewRegisterAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.RegisterAccountMessage{
		Email: "missing-password@example.com",
	})
	require.Error(t, err)

	err = handler.Execute(context.Background(), identity.RegisterAccountMessage{
		Password: "password12345",
	})
	require.Error(t, err)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterAccountHandlerCancelledContext(t *testing.T) {
	repo := &MockRepositoryManager{}
	handler := identity.NewRegisterAccountHandler(repo).WithLogger(testLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		Email:    "new@example.com",
		Password: "password12345",
	})
	require.Error(t, err)
	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
