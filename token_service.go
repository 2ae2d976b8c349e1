package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	// DefaultAccessTokenTTL is the lifetime of the access half of a token pair
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the lifetime of the refresh half of a token pair
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair is the access/refresh pair issued by GeneratePair. The core
// login path uses single-token mode only; the pair is an alternate entry
// point for systems wanting short-lived access tokens.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenService mints and validates signed session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	GeneratePair(identity Identity) (TokenPair, error)
	SignClaims(claims *SessionClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	accessTTL       time.Duration
	refreshTTL      time.Duration
	logger          Logger
}

// NewTokenService creates a new TokenService instance. tokenExpiration is
// in hours; the signing key is process-wide configuration and rotating it
// invalidates all outstanding tokens.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		accessTTL:       DefaultAccessTokenTTL,
		refreshTTL:      DefaultRefreshTokenTTL,
		logger:          logger,
	}
}

// WithPairDurations overrides the access/refresh lifetimes used by GeneratePair.
func (ts *TokenServiceImpl) WithPairDurations(access, refresh time.Duration) *TokenServiceImpl {
	if access > 0 {
		ts.accessTTL = access
	}
	if refresh > 0 {
		ts.refreshTTL = refresh
	}
	return ts
}

// Generate creates a signed session token for a verified identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity is required", errors.CategoryBadInput)
	}

	claims := ts.newClaims(identity, time.Duration(ts.tokenExpiration)*time.Hour)
	return ts.SignClaims(claims)
}

// GeneratePair creates a short-lived access token and a long-lived refresh
// token for the same identity.
func (ts *TokenServiceImpl) GeneratePair(identity Identity) (TokenPair, error) {
	if identity == nil {
		return TokenPair{}, errors.New("identity is required", errors.CategoryBadInput)
	}

	accessClaims := ts.newClaims(identity, ts.accessTTL)
	access, err := ts.SignClaims(accessClaims)
	if err != nil {
		return TokenPair{}, err
	}

	refreshClaims := ts.newClaims(identity, ts.refreshTTL)
	refresh, err := ts.SignClaims(refreshClaims)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.Expires(),
		RefreshExpiresAt: refreshClaims.Expires(),
	}, nil
}

// SignClaims signs arbitrary session claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// It fails closed on any signature mismatch, method mismatch, or expiry.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenServiceImpl) newClaims(identity Identity, ttl time.Duration) *SessionClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}
