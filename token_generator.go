package identity

import "github.com/google/uuid"

// TokenGenerator produces unguessable single-use token values. Tokens carry
// no embedded metadata; purpose and expiry live alongside them on the account.
type TokenGenerator interface {
	NewToken() string
}

// TokenGeneratorFunc adapts a function to the TokenGenerator interface.
type TokenGeneratorFunc func() string

// NewToken implements TokenGenerator.
func (f TokenGeneratorFunc) NewToken() string { return f() }

type uuidTokenGenerator struct{}

// NewToken returns a random UUID v4 string: 122 bits of entropy. No
// uniqueness check is made against the store; the unique index on the
// pending token column is the backstop.
func (uuidTokenGenerator) NewToken() string {
	return uuid.NewString()
}

// NewTokenGenerator returns the default UUID-backed generator.
func NewTokenGenerator() TokenGenerator {
	return uuidTokenGenerator{}
}
