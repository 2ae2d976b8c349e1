package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// ConfirmAccountEmailSQL consumes a confirmation token: the status change
// and the token clear happen in one statement, guarded by the token value so
// concurrent consumers cannot both succeed.
var ConfirmAccountEmailSQL = `UPDATE "accounts" AS "acc"
SET
	"status" = ?,
	"confirmed_at" = ?,
	"pending_token" = NULL,
	"pending_token_kind" = NULL,
	"pending_token_expiry" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
)
AND (
	"acc"."pending_token" = ?
) RETURNING *;`

// ResetAccountPasswordSQL consumes a reset token and replaces the password
// hash, with the same token guard as ConfirmAccountEmailSQL.
var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"pending_token" = NULL,
	"pending_token_kind" = NULL,
	"pending_token_expiry" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
)
AND (
	"acc"."pending_token" = ?
) RETURNING *;`

// Accounts is the persistence contract the flows depend on
type Accounts interface {
	repository.Repository[*Account]

	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByPendingToken(ctx context.Context, token string) (*Account, error)
	FindByPendingTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, at time.Time) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token, passwordHash string) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository builds the Bun-backed Accounts repository.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

// FindByEmailTx matches the email column exactly; canonicalization is the
// caller's concern.
func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.findByColumnTx(ctx, tx, "email", email)
}

func (a *accounts) FindByPendingToken(ctx context.Context, token string) (*Account, error) {
	return a.FindByPendingTokenTx(ctx, a.db, token)
}

func (a *accounts) FindByPendingTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}
	return a.findByColumnTx(ctx, tx, "pending_token", token)
}

func (a *accounts) findByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"column": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

// RegisterTx creates the account, normalizing a store-level unique violation
// into the same conflict outcome as the pre-check.
func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)

	created, err := a.Repository.CreateTx(ctx, tx, account)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrEmailConflict
		}
		return nil, err
	}

	return created, nil
}

func (a *accounts) ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, at time.Time) error {
	res, err := a.Repository.RawTx(ctx, tx, ConfirmAccountEmailSQL, StatusConfirmed, at, id.String(), token)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetAccountPasswordSQL, passwordHash, id.String(), token)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// isDuplicateKeyError recognizes unique-constraint violations from the
// drivers we wire: Postgres (pgx) and the sqliteshim fallback.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
