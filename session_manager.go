package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// SessionManager owns the mint-then-store sequence for authentication
// events. Every successful login, registration, and refresh goes through
// IssueAndStore, which is what enforces the at-most-one-refresh-token-per-
// user invariant: the previous token stops being recognized the instant a
// new one lands in the store.
type SessionManager struct {
	signer     Signer
	sessions   Sessions
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     Logger
}

type SessionManagerOption func(*SessionManager)

func WithTokenTTLs(accessTTL, refreshTTL time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if accessTTL > 0 {
			m.accessTTL = accessTTL
		}
		if refreshTTL > 0 {
			m.refreshTTL = refreshTTL
		}
	}
}

func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewSessionManager(signer Signer, sessions Sessions, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		signer:     signer,
		sessions:   sessions,
		accessTTL:  DefaultAccessTokenTTL,
		refreshTTL: DefaultRefreshTokenTTL,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// IssueAndStore mints a fresh TokenPair for the user and rotates the stored
// session to the new refresh token. The sessions upsert guarantees a single
// row per user regardless of how many rotations preceded this one.
func (m *SessionManager) IssueAndStore(ctx context.Context, user *User) (*TokenPair, error) {
	subject := user.Summary()

	access, err := m.signer.Mint(subject, SecretAccess, m.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint access token")
	}

	refresh, err := m.signer.Mint(subject, SecretRefresh, m.refreshTTL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint refresh token")
	}

	if _, err := m.sessions.Upsert(ctx, user.ID, refresh); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to store refresh session")
	}

	m.logger.Debug("session rotated", "user_id", user.ID.String())

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
