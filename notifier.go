package identity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultConfirmEmailPath  = "/auth/confirm-email"
	defaultPasswordResetPath = "/auth/reset-password"
)

// LinkBuilder renders the confirmation and reset URLs embedded in outbound
// notifications. Link construction is pure templating; the raw token it
// embeds is the part the flows care about.
type LinkBuilder struct {
	baseURL     string
	confirmPath string
	resetPath   string
}

// NewLinkBuilder creates a LinkBuilder rooted at baseURL.
func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{
		baseURL:     strings.TrimRight(baseURL, "/"),
		confirmPath: defaultConfirmEmailPath,
		resetPath:   defaultPasswordResetPath,
	}
}

// WithConfirmPath overrides the confirmation link path.
func (b *LinkBuilder) WithConfirmPath(path string) *LinkBuilder {
	if path != "" {
		b.confirmPath = path
	}
	return b
}

// WithResetPath overrides the reset link path.
func (b *LinkBuilder) WithResetPath(path string) *LinkBuilder {
	if path != "" {
		b.resetPath = path
	}
	return b
}

// ConfirmEmailLink returns the URL a new account must visit to confirm.
func (b *LinkBuilder) ConfirmEmailLink(token string) string {
	return b.link(b.confirmPath, token)
}

// PasswordResetLink returns the URL a reset request mails out.
func (b *LinkBuilder) PasswordResetLink(token string) string {
	return b.link(b.resetPath, token)
}

func (b *LinkBuilder) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", b.baseURL, path, url.QueryEscape(token))
}

// LogNotifier writes notifications to the logger instead of delivering
// them. Useful in development and as the default wiring in tests.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a Notifier backed by the given logger.
func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification to=%s subject=%q body=%s", to, subject, body)
	return nil
}

// notify delivers out-of-band without blocking the flow: failures are
// logged, never surfaced to the caller.
func notify(notifier Notifier, logger Logger, to, subject, body string) {
	go func() {
		if err := normalizeNotifier(notifier).Send(context.Background(), to, subject, body); err != nil {
			if logger == nil {
				logger = defLogger{}
			}
			logger.Warn("notifier send error: %v", err)
		}
	}()
}
