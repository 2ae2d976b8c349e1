package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's role tag. The core enforces presence only;
// authorization policy belongs to the consuming application.
type AccountRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser AccountRole = "user"
	// RoleAdmin is an administrative role
	RoleAdmin AccountRole = "admin"
)

// PendingTokenKind tags the purpose of an outstanding single-use token.
type PendingTokenKind string

const (
	// PendingConfirmation authorizes one email confirmation
	PendingConfirmation PendingTokenKind = "confirmation"
	// PendingReset authorizes one password reset
	PendingReset PendingTokenKind = "reset"
)

// Account is the persisted user record
type Account struct {
	bun.BaseModel      `bun:"table:accounts,alias:acc"`
	ID                 uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string           `bun:"name,notnull" json:"name,omitempty"`
	Email              string           `bun:"email,notnull,unique" json:"email,omitempty"`
	Role               AccountRole      `bun:"role,notnull" json:"role,omitempty"`
	PasswordHash       string           `bun:"password_hash,notnull" json:"-"`
	Status             AccountStatus    `bun:"status,notnull" json:"status,omitempty"`
	ConfirmedAt        *time.Time       `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	PendingTokenKind   PendingTokenKind `bun:"pending_token_kind,nullzero" json:"-"`
	PendingToken       string           `bun:"pending_token,nullzero,unique" json:"-"`
	PendingTokenExpiry *time.Time       `bun:"pending_token_expiry,nullzero" json:"-"`
	CreatedAt          *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time       `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults a blank status to unconfirmed.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = StatusUnconfirmed
	}
}

// IsEmailConfirmed reports whether the account completed email confirmation.
func (a *Account) IsEmailConfirmed() bool {
	return a.Status == StatusConfirmed
}

// IssuePendingToken overwrites the pending token slot. Kind, value, and
// expiry are set together; any token previously in flight is superseded.
func (a *Account) IssuePendingToken(kind PendingTokenKind, value string, expiry time.Time) {
	a.PendingTokenKind = kind
	a.PendingToken = value
	a.PendingTokenExpiry = &expiry
}

// ClearPendingToken empties the slot. Called on consumption so a token is
// usable at most once.
func (a *Account) ClearPendingToken() {
	a.PendingTokenKind = ""
	a.PendingToken = ""
	a.PendingTokenExpiry = nil
}

// HasPendingToken reports whether a token is in flight. Value and expiry
// are both set or both empty, never one without the other.
func (a *Account) HasPendingToken() bool {
	return a.PendingToken != "" && a.PendingTokenExpiry != nil
}

// PendingTokenUsable reports whether the slot holds a token of the given
// kind that has not expired. Expiry is strict: expiry < now is expired,
// expiry == now is still valid.
func (a *Account) PendingTokenUsable(kind PendingTokenKind, now time.Time) bool {
	if !a.HasPendingToken() || a.PendingTokenKind != kind {
		return false
	}
	return !a.PendingTokenExpiry.Before(now)
}

// AccountView is the outward representation of an account. It carries no
// password hash or token material by construction.
type AccountView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// NewAccountView builds the response view for an account.
func NewAccountView(a *Account) *AccountView {
	if a == nil {
		return nil
	}
	a.EnsureStatus()
	return &AccountView{
		ID:        a.ID.String(),
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}
