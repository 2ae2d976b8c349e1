package identity

import "time"

const (
	// DefaultConfirmationTokenTTL is the expiry horizon for email
	// confirmation tokens issued at registration.
	DefaultConfirmationTokenTTL = time.Hour
	// DefaultResetTokenTTL is the expiry horizon for password reset tokens.
	DefaultResetTokenTTL = 15 * time.Minute
	// DefaultTokenExpiration is the session token lifetime in hours.
	DefaultTokenExpiration = 1
)

// SimpleConfig is a plain-struct Config implementation. Values are loaded
// once at process start and immutable thereafter; the zero value is filled
// with development defaults by NewSimpleConfig.
//
// NOTE: the default signing key is insecure and acceptable only outside
// production.
type SimpleConfig struct {
	SigningKey           string
	TokenExpiration      int
	Issuer               string
	Audience             []string
	BcryptCost           int
	ConfirmationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	BaseURL              string
}

// NewSimpleConfig returns a SimpleConfig populated with development defaults.
func NewSimpleConfig() *SimpleConfig {
	return &SimpleConfig{
		SigningKey:           "insecure-dev-signing-key",
		TokenExpiration:      DefaultTokenExpiration,
		Issuer:               "go-identity",
		BcryptCost:           DefaultBcryptCost,
		ConfirmationTokenTTL: DefaultConfirmationTokenTTL,
		ResetTokenTTL:        DefaultResetTokenTTL,
		BaseURL:              "http://localhost:3000",
	}
}

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetBcryptCost() int {
	if c.BcryptCost <= 0 {
		return DefaultBcryptCost
	}
	return c.BcryptCost
}

func (c *SimpleConfig) GetConfirmationTokenTTL() time.Duration {
	if c.ConfirmationTokenTTL <= 0 {
		return DefaultConfirmationTokenTTL
	}
	return c.ConfirmationTokenTTL
}

func (c *SimpleConfig) GetResetTokenTTL() time.Duration {
	if c.ResetTokenTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return c.ResetTokenTTL
}

func (c *SimpleConfig) GetBaseURL() string { return c.BaseURL }

var _ Config = (*SimpleConfig)(nil)
