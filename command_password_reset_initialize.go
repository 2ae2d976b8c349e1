package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "auth.password_reset" }

// InitializePasswordResetResponse reports the outcome to the caller.
// Initiated is false when no account matched the email; callers exposed to
// untrusted clients should not relay that distinction.
type InitializePasswordResetResponse struct {
	Initiated bool
	Success   bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   TokenGenerator
	notifier Notifier
	links    *LinkBuilder
	activity ActivitySink
	logger   Logger
	resetTTL time.Duration
	now      func() time.Time
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   NewTokenGenerator(),
		notifier: noopNotifier{},
		links:    NewLinkBuilder(""),
		activity: noopActivitySink{},
		logger:   defLogger{},
		resetTTL: DefaultResetTokenTTL,
		now:      time.Now,
	}
}

// WithTokenGenerator overrides the pending-token source.
func (h *InitializePasswordResetHandler) WithTokenGenerator(g TokenGenerator) *InitializePasswordResetHandler {
	if g != nil {
		h.tokens = g
	}
	return h
}

// WithNotifier sets the outbound transport for reset links.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithLinkBuilder sets the link templating used in notifications.
func (h *InitializePasswordResetHandler) WithLinkBuilder(b *LinkBuilder) *InitializePasswordResetHandler {
	if b != nil {
		h.links = b
	}
	return h
}

// WithActivitySink sets the sink used to emit reset-request events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithResetTTL overrides the reset token expiry horizon.
func (h *InitializePasswordResetHandler) WithResetTTL(ttl time.Duration) *InitializePasswordResetHandler {
	if ttl > 0 {
		h.resetTTL = ttl
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *InitializePasswordResetHandler) WithClock(clock func() time.Time) *InitializePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	account := &Account{}
	var token string
	initiated := false

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Email == "" {
		return goerrors.New("email is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err = h.repo.Accounts().FindByEmailTx(ctx, tx, event.Email)
		if err != nil {
			// unknown email is a silent no-op so callers cannot probe
			// which addresses are registered
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		// a new request supersedes any token already parked in the slot
		token = h.tokens.NewToken()
		account.IssuePendingToken(PendingReset, token, h.now().Add(h.resetTTL))

		if _, err := h.repo.Accounts().UpdateTx(ctx, tx, account,
			repository.UpdateByID(account.ID.String()),
		); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
		}

		initiated = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset initialization failed")
	}

	if initiated {
		notify(h.notifier, h.logger, account.Email,
			"Reset your password",
			fmt.Sprintf(`<p>Click to reset your password: <a href="%s">Reset Password</a></p>`, h.links.PasswordResetLink(token)),
		)

		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventPasswordResetRequest,
			AccountID: account.ID.String(),
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Initiated: initiated,
			Success:   true,
		})
	}

	return nil
}
