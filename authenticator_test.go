package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *identity.SimpleConfig {
	cfg := identity.NewSimpleConfig()
	cfg.SigningKey = "test-signing-key"
	cfg.Issuer = "test-issuer"
	return cfg
}

func TestAutherLoginSuccess(t *testing.T) {
	provider := &MockIdentityProvider{}
	sink := &MockActivitySink{}

	id := &MockIdentity{}
	id.On("ID").Return("account-123")
	id.On("Email").Return("user@example.com")
	id.On("Role").Return("user")

	provider.On("VerifyIdentity", mock.Anything, "user@example.com", "password12345").
		Return(id, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventLoginSuccess &&
			evt.AccountID == "account-123"
	})).Return(nil).Once()

	auther := identity.NewAuthenticator(provider, testConfig()).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	token, err := auther.Login(context.Background(), "user@example.com", "password12345")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// the token round-trips through session validation
	claims, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "account-123", claims.AccountID())
	assert.Equal(t, "user@example.com", claims.Email())
	assert.Equal(t, "user", claims.Role())

	provider.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAutherLoginFailureEmitsActivity(t *testing.T) {
	provider := &MockIdentityProvider{}
	sink := &MockActivitySink{}

	provider.On("VerifyIdentity", mock.Anything, "user@example.com", "wrong").
		Return(nil, identity.ErrInvalidCredentials).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventLoginFailure &&
			evt.Metadata["email"] == "user@example.com"
	})).Return(nil).Once()

	auther := identity.NewAuthenticator(provider, testConfig()).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	token, err := auther.Login(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	provider.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAutherLoginPair(t *testing.T) {
	provider := &MockIdentityProvider{}

	id := &MockIdentity{}
	id.On("ID").Return("account-123")
	id.On("Email").Return("user@example.com")
	id.On("Role").Return("user")

	provider.On("VerifyIdentity", mock.Anything, "user@example.com", "password12345").
		Return(id, nil).Once()

	auther := identity.NewAuthenticator(provider, testConfig()).
		WithLogger(testLogger{})

	pair, err := auther.LoginPair(context.Background(), "user@example.com", "password12345")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	claims, err := auther.SessionFromToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "account-123", claims.AccountID())
}

func TestAutherSessionFromTokenRejectsTampering(t *testing.T) {
	provider := &MockIdentityProvider{}

	id := &MockIdentity{}
	id.On("ID").Return("account-123")
	id.On("Email").Return("user@example.com")
	id.On("Role").Return("user")

	provider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(id, nil).Once()

	auther := identity.NewAuthenticator(provider, testConfig()).WithLogger(testLogger{})

	token, err := auther.Login(context.Background(), "user@example.com", "password12345")
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.SigningKey = "a-different-key"
	other := identity.NewAuthenticator(provider, otherCfg)

	_, err = other.SessionFromToken(token)
	require.Error(t, err)
	assert.True(t, identity.IsMalformedError(err))
}
