package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther is the default Authenticator: it verifies credentials through an
// IdentityProvider and issues session tokens through a TokenService.
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

// NewAuthenticator creates an Authenticator wired from configuration.
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	return &Auther{
		provider: provider,
		tokens: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			defLogger{},
		),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithTokenService overrides the token service used to mint and validate sessions.
func (a *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		a.tokens = ts
	}
	return a
}

// WithActivitySink sets the sink used to emit login events.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activity = normalizeActivitySink(sink)
	return a
}

// WithLogger overrides the logger used by the authenticator.
func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// TokenService exposes the underlying token service, e.g. to issue pairs.
func (a *Auther) TokenService() TokenService {
	return a.tokens
}

// Login verifies the credentials and returns a signed session token.
func (a *Auther) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata: map[string]any{
				"email": email,
			},
		})
		return "", err
	}

	token, err := a.tokens.Generate(identity)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: identity.ID(),
	})

	return token, nil
}

// LoginPair verifies the credentials and returns an access/refresh token pair.
func (a *Auther) LoginPair(ctx context.Context, email, password string) (TokenPair, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata: map[string]any{
				"email": email,
			},
		})
		return TokenPair{}, err
	}

	pair, err := a.tokens.GeneratePair(identity)
	if err != nil {
		return TokenPair{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token pair")
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: identity.ID(),
	})

	return pair, nil
}

// SessionFromToken validates a raw token string and returns its claims.
func (a *Auther) SessionFromToken(token string) (AuthClaims, error) {
	return a.tokens.Validate(token)
}

var _ Authenticator = (*Auther)(nil)
