package identity_test

import (
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTokenGeneratorProducesUniqueTokens(t *testing.T) {
	gen := identity.NewTokenGenerator()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := gen.NewToken()
		assert.NotEmpty(t, token)
		assert.False(t, seen[token], "token collision: %s", token)
		seen[token] = true
	}
}

func TestTokenGeneratorTokensAreOpaque(t *testing.T) {
	gen := identity.NewTokenGenerator()
	token := gen.NewToken()

	// random UUIDs, no account material embedded
	id, err := uuid.Parse(token)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func TestTokenGeneratorFunc(t *testing.T) {
	gen := identity.TokenGeneratorFunc(func() string { return "fixed-token" })
	assert.Equal(t, "fixed-token", gen.NewToken())
}
