package identity_test

import (
	"encoding/json"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountPendingTokenSlot(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	account := &identity.Account{}

	assert.False(t, account.HasPendingToken())

	account.IssuePendingToken(identity.PendingConfirmation, "tok-1", now.Add(time.Hour))
	assert.True(t, account.HasPendingToken())
	assert.True(t, account.PendingTokenUsable(identity.PendingConfirmation, now))

	// the slot holds one token; a new issue supersedes the old one
	account.IssuePendingToken(identity.PendingReset, "tok-2", now.Add(15*time.Minute))
	assert.Equal(t, "tok-2", account.PendingToken)
	assert.False(t, account.PendingTokenUsable(identity.PendingConfirmation, now))
	assert.True(t, account.PendingTokenUsable(identity.PendingReset, now))

	account.ClearPendingToken()
	assert.False(t, account.HasPendingToken())
	assert.False(t, account.PendingTokenUsable(identity.PendingReset, now))
}

func TestPendingTokenUsableExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		usable bool
	}{
		{
			name:   "expiry in the future",
			expiry: now.Add(time.Minute),
			usable: true,
		},
		{
			name:   "expiry exactly now is still valid",
			expiry: now,
			usable: true,
		},
		{
			name:   "expiry in the past",
			expiry: now.Add(-time.Nanosecond),
			usable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &identity.Account{}
			account.IssuePendingToken(identity.PendingReset, "token", tt.expiry)
			assert.Equal(t, tt.usable, account.PendingTokenUsable(identity.PendingReset, now))
		})
	}
}

func TestPendingTokenUsableRejectsWrongKind(t *testing.T) {
	now := time.Now()
	account := &identity.Account{}
	account.IssuePendingToken(identity.PendingConfirmation, "token", now.Add(time.Hour))

	assert.True(t, account.PendingTokenUsable(identity.PendingConfirmation, now))
	assert.False(t, account.PendingTokenUsable(identity.PendingReset, now))
}

func TestEnsureStatusDefaultsToUnconfirmed(t *testing.T) {
	account := &identity.Account{}
	account.EnsureStatus()
	assert.Equal(t, identity.StatusUnconfirmed, account.Status)
	assert.False(t, account.IsEmailConfirmed())

	account.Status = identity.StatusConfirmed
	account.EnsureStatus()
	assert.Equal(t, identity.StatusConfirmed, account.Status)
	assert.True(t, account.IsEmailConfirmed())
}

func TestAccountJSONNeverLeaksSecrets(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	account := &identity.Account{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: "$2a$14$secret-hash",
	}
	account.IssuePendingToken(identity.PendingConfirmation, "secret-token", expiry)

	raw, err := json.Marshal(account)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret-hash")
	assert.NotContains(t, string(raw), "secret-token")
	assert.Contains(t, string(raw), "user@example.com")
}

func TestNewAccountView(t *testing.T) {
	created := time.Now()
	account := &identity.Account{
		ID:           uuid.New(),
		Name:         "Pat",
		Email:        "pat@example.com",
		Role:         identity.RoleUser,
		PasswordHash: "$2a$14$secret",
		Status:       identity.StatusUnconfirmed,
		CreatedAt:    &created,
	}

	view := identity.NewAccountView(account)
	require.NotNil(t, view)

	assert.Equal(t, account.ID.String(), view.ID)
	assert.Equal(t, "Pat", view.Name)
	assert.Equal(t, "pat@example.com", view.Email)
	assert.Equal(t, "user", view.Role)
	assert.Equal(t, "unconfirmed", view.Status)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	assert.Nil(t, identity.NewAccountView(nil))
}
