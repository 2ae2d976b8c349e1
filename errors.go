package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeEmailTaken signals a duplicate email on registration.
	TextCodeEmailTaken = "EMAIL_TAKEN"
	// TextCodeTokenInvalid is the unified code for absent and expired
	// pending tokens. The two cases are deliberately not distinguished.
	TextCodeTokenInvalid = "TOKEN_INVALID_OR_EXPIRED"
	// TextCodeEmailNotConfirmed signals a login blocked pending confirmation.
	TextCodeEmailNotConfirmed = "EMAIL_NOT_CONFIRMED"
	// TextCodeInvalidCredentials covers both unknown email and wrong
	// password so responses do not reveal which accounts exist.
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// ErrEmailConflict is returned when registering an email that already exists,
// whether caught by the pre-check or by the store's unique constraint.
var ErrEmailConflict = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidOrExpiredToken is the unified failure for token operations.
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailNotConfirmed blocks logins for accounts that never confirmed.
var ErrEmailNotConfirmed = goerrors.New("email not confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyPassword rejects empty plaintext passwords before hashing.
var ErrNoEmptyPassword = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the verify failure for a wrong password.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a session JWT is past its expiry.
var ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
	WithTextCode("SESSION_TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for session JWTs that fail to parse or verify.
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode("SESSION_TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// IsConflict reports whether err is the duplicate-email outcome.
func IsConflict(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeEmailTaken
	}
	return false
}

// IsInvalidOrExpiredToken reports whether err is the unified token failure.
func IsInvalidOrExpiredToken(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenInvalid
	}
	return false
}

// IsTokenExpiredError will check for expired session tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
