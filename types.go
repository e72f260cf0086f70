package identity

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Hasher is the one-way password hashing capability.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, digest string) error
}

// Signer mints and verifies signed, time-bounded identity assertions. The
// secret class selects between access and refresh key material; the two are
// never interchangeable.
type Signer interface {
	Mint(subject UserSummary, class SecretClass, ttl time.Duration) (string, error)
	Verify(token string, class SecretClass) (*IdentityClaims, error)
}

// Notifier attempts a single delivery of an identity-confirmation message
// and reports success or failure. Retries live in RetryingNotifier only.
type Notifier interface {
	Deliver(ctx context.Context, kind NotificationKind, email, link string) error
}

// Config holds identity engine options
type Config interface {
	GetAccessSecret() string
	GetRefreshSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetMailerURL() string
	GetActivationBaseURL() string
	GetResetBaseURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
