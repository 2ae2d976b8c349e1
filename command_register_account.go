package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	UseHashid  bool
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account *AccountView
	Success bool
}

type RegisterAccountHandler struct {
	repo       RepositoryManager
	tokens     TokenGenerator
	notifier   Notifier
	links      *LinkBuilder
	activity   ActivitySink
	logger     Logger
	bcryptCost int
	confirmTTL time.Duration
	now        func() time.Time
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:       repo,
		tokens:     NewTokenGenerator(),
		notifier:   noopNotifier{},
		links:      NewLinkBuilder(""),
		activity:   noopActivitySink{},
		logger:     defLogger{},
		bcryptCost: DefaultBcryptCost,
		confirmTTL: DefaultConfirmationTokenTTL,
		now:        time.Now,
	}
}

// WithTokenGenerator overrides the pending-token source.
func (h *RegisterAccountHandler) WithTokenGenerator(g TokenGenerator) *RegisterAccountHandler {
	if g != nil {
		h.tokens = g
	}
	return h
}

// WithNotifier sets the outbound transport for confirmation links.
func (h *RegisterAccountHandler) WithNotifier(n Notifier) *RegisterAccountHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithLinkBuilder sets the link templating used in notifications.
func (h *RegisterAccountHandler) WithLinkBuilder(b *LinkBuilder) *RegisterAccountHandler {
	if b != nil {
		h.links = b
	}
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithBcryptCost sets the hashing work factor.
func (h *RegisterAccountHandler) WithBcryptCost(cost int) *RegisterAccountHandler {
	if cost > 0 {
		h.bcryptCost = cost
	}
	return h
}

// WithConfirmationTTL overrides the confirmation token expiry horizon.
func (h *RegisterAccountHandler) WithConfirmationTTL(ttl time.Duration) *RegisterAccountHandler {
	if ttl > 0 {
		h.confirmTTL = ttl
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *RegisterAccountHandler) WithClock(clock func() time.Time) *RegisterAccountHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	account := &Account{}
	var token string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Email == "" || event.Password == "" {
		return goerrors.New("email and password are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// optimistic pre-check; the unique constraint backs the race
		if _, err := h.repo.Accounts().FindByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrEmailConflict
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing email")
		}

		hash, err := HashPasswordWithCost(event.Password, h.bcryptCost)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Name = event.Name
		account.Email = event.Email
		account.Role = event.Role
		account.PasswordHash = hash
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		token = h.tokens.NewToken()
		account.IssuePendingToken(PendingConfirmation, token, h.now().Add(h.confirmTTL))

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	notify(h.notifier, h.logger, account.Email,
		"Confirm your email",
		fmt.Sprintf(`<p>Click to confirm your email: <a href="%s">Confirm</a></p>`, h.links.ConfirmEmailLink(token)),
	)

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		AccountID: account.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			Account: NewAccountView(account),
			Success: true,
		})
	}

	return nil
}
