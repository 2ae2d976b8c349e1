package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AccountFinder is the slice of the store the provider needs.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// AccountProvider implements IdentityProvider over the accounts store.
type AccountProvider struct {
	store  AccountFinder
	logger Logger
}

// NewAccountProvider creates an IdentityProvider backed by the given store.
func NewAccountProvider(store AccountFinder) *AccountProvider {
	return &AccountProvider{
		store:  store,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the provider.
func (p *AccountProvider) WithLogger(logger Logger) *AccountProvider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// VerifyIdentity checks the email/password pair against the store. Unknown
// emails and wrong passwords produce the same error. The password is always
// checked before the confirmation gate so an unconfirmed response never
// doubles as an oracle for guessed passwords.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.store.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		p.logger.Debug("password verification failed for account %s", account.ID)
		return nil, ErrInvalidCredentials
	}

	if !account.IsEmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return NewIdentityFromAccount(account), nil
}

// FindIdentityByEmail looks up an identity without verifying credentials.
func (p *AccountProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	account, err := p.store.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "account not found").
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	return NewIdentityFromAccount(account), nil
}

var _ IdentityProvider = (*AccountProvider)(nil)
