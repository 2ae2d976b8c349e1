package identity

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AccountStatus tracks where an account sits in its lifecycle.
type AccountStatus string

const (
	// StatusUnconfirmed is the state at registration, before the
	// confirmation token is consumed
	StatusUnconfirmed AccountStatus = "unconfirmed"
	// StatusConfirmed is reached exactly once, via a successful confirmation
	StatusConfirmed AccountStatus = "confirmed"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

var accountTransitions = map[AccountStatus]map[AccountStatus]struct{}{
	StatusUnconfirmed: {
		StatusConfirmed: {},
	},
}

// CanTransition reports whether the lifecycle graph allows from -> to.
func CanTransition(from, to AccountStatus) bool {
	if allowed, ok := accountTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// TransitionAccount moves an account to the target status, stamping
// ConfirmedAt when it enters the confirmed state.
func TransitionAccount(account *Account, target AccountStatus, now time.Time) error {
	if account == nil {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	account.EnsureStatus()
	from := account.Status

	if from == target {
		return nil
	}

	if !CanTransition(from, target) {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	account.Status = target
	if target == StatusConfirmed {
		account.ConfirmedAt = &now
	}

	return nil
}
