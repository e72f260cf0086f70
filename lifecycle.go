package identity

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityLifecycle orchestrates registration, activation, login, refresh,
// logout, and the password-reset flow. It holds no state across invocations:
// every call works against the Directory, and the two-phase flows
// (persist-then-notify) compensate by deleting what they created when the
// notification ultimately fails.
type IdentityLifecycle struct {
	repo           Directory
	sessions       *SessionManager
	signer         Signer
	hasher         Hasher
	notifier       Notifier
	activationBase string
	resetBase      string
	logger         Logger
}

type LifecycleOption func(*IdentityLifecycle)

// WithConfirmationLinks sets the public-facing base URLs that activation and
// reset tokens are appended to.
func WithConfirmationLinks(activationBase, resetBase string) LifecycleOption {
	return func(l *IdentityLifecycle) {
		l.activationBase = strings.TrimRight(activationBase, "/")
		l.resetBase = strings.TrimRight(resetBase, "/")
	}
}

func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *IdentityLifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewIdentityLifecycle(
	repo Directory,
	sessions *SessionManager,
	signer Signer,
	hasher Hasher,
	notifier Notifier,
	opts ...LifecycleOption,
) *IdentityLifecycle {
	l := &IdentityLifecycle{
		repo:     repo,
		sessions: sessions,
		signer:   signer,
		hasher:   hasher,
		notifier: notifier,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

func (l *IdentityLifecycle) activationLink(token string) string {
	if l.activationBase == "" {
		return token
	}
	return l.activationBase + "/" + token
}

func (l *IdentityLifecycle) resetLink(token string) string {
	if l.resetBase == "" {
		return token
	}
	return l.resetBase + "/" + token
}

// ValidateToken verifies an access token and returns the identity it
// asserts.
func (l *IdentityLifecycle) ValidateToken(token string) (*UserSummary, error) {
	if token == "" {
		return nil, ErrMissingAccessToken
	}

	claims, err := l.signer.Verify(token, SecretAccess)
	if err != nil {
		return nil, err
	}

	summary := claims.Summary()
	return &summary, nil
}

// Register creates an unactivated user, notifies the address with an
// activation link, and opens the first session. The user row is deleted
// again if the notification cannot be delivered: registration must never
// leave an unreachable, unnotified account behind.
func (l *IdentityLifecycle) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	if _, err := l.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !IsNotFound(err) {
		return nil, err
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	link := uuid.NewString()

	user, err := l.repo.Users().Create(ctx, &User{
		Email:          email,
		PasswordHash:   hash,
		ActivationLink: link,
		Activated:      false,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "could not create user").
			WithCode(errors.CodeBadRequest)
	}

	if err := l.notifier.Deliver(ctx, KindActivation, email, l.activationLink(link)); err != nil {
		l.logger.Error("activation notification failed, removing user",
			"user_id", user.ID.String(),
			"error", err,
		)

		// Compensation is best effort: a failed delete is logged, never
		// re-raised, so it cannot mask the delivery failure.
		if delErr := l.repo.Users().Delete(ctx, user.ID); delErr != nil {
			l.logger.Error("failed to remove user after notification failure",
				"user_id", user.ID.String(),
				"error", delErr,
			)
		}

		return nil, errors.Wrap(err, errors.CategoryBadInput,
			"failed to send activation email, please try registering again later").
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeDeliveryFailed)
	}

	pair, err := l.sessions.IssueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{TokenPair: *pair, User: user.Summary()}, nil
}

// Login authenticates an email/password pair. The check order is fixed:
// existence, then password, then activation, so each failure mode gets a
// precise error.
func (l *IdentityLifecycle) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := l.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := l.hasher.Matches(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.Activated {
		return nil, ErrAccountNotActivated
	}

	pair, err := l.sessions.IssueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{TokenPair: *pair, User: user.Summary()}, nil
}

// Activate flips the user referenced by the activation link to activated.
// Activating an already-activated user succeeds as a no-op.
func (l *IdentityLifecycle) Activate(ctx context.Context, link string) error {
	user, err := l.repo.Users().GetByActivationLink(ctx, link)
	if err != nil {
		if IsNotFound(err) {
			return ErrInvalidActivationLink
		}
		return err
	}

	if user.Activated {
		return nil
	}

	return l.repo.Users().MarkActivated(ctx, user.ID)
}

// Refresh exchanges a live refresh token for a fresh TokenPair, rotating
// the stored session. The store lookup is the source of truth: a token that
// still verifies cryptographically but has been superseded by a later
// rotation is rejected.
func (l *IdentityLifecycle) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	claims, err := l.signer.Verify(refreshToken, SecretRefresh)
	if err != nil {
		return nil, err
	}

	if _, err := l.repo.Sessions().GetByRefreshToken(ctx, refreshToken); err != nil {
		if IsNotFound(err) {
			return nil, ErrStaleRefreshToken
		}
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := l.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	pair, err := l.sessions.IssueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{TokenPair: *pair, User: user.Summary()}, nil
}

// Logout revokes the session holding this refresh token value. Logging out
// a token that is not stored succeeds as a no-op.
func (l *IdentityLifecycle) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshTokenRequired
	}

	return l.repo.Sessions().DeleteByRefreshToken(ctx, refreshToken)
}

// ForgotPassword issues a reset ticket and mails a reset link. The ticket
// is abandoned (deleted) when the notification cannot be delivered, so no
// orphaned reset credentials accumulate.
func (l *IdentityLifecycle) ForgotPassword(ctx context.Context, email string) error {
	user, err := l.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}

	ticket := uuid.NewString()

	if _, err := l.repo.ResetTickets().Create(ctx, &ResetTicket{
		UserID: user.ID,
		Ticket: ticket,
	}); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to create reset ticket").
			WithCode(errors.CodeBadRequest)
	}

	if err := l.notifier.Deliver(ctx, KindReset, email, l.resetLink(ticket)); err != nil {
		l.logger.Error("reset notification failed, abandoning ticket",
			"user_id", user.ID.String(),
			"error", err,
		)

		if delErr := l.repo.ResetTickets().DeleteByTicket(ctx, ticket); delErr != nil {
			l.logger.Error("failed to abandon reset ticket after notification failure",
				"user_id", user.ID.String(),
				"error", delErr,
			)
		}

		return errors.Wrap(err, errors.CategoryBadInput,
			"failed to send reset password email, please try again later").
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeDeliveryFailed)
	}

	return nil
}

// ResetPassword consumes a reset ticket and replaces the owning user's
// password hash. Update and ticket deletion run in one transaction so a
// consumed ticket can never authorize a second change.
func (l *IdentityLifecycle) ResetPassword(ctx context.Context, ticketValue, newPassword string) error {
	ticket, err := l.repo.ResetTickets().GetByTicket(ctx, ticketValue)
	if err != nil {
		if IsNotFound(err) {
			return ErrTicketConsumed
		}
		return err
	}

	user, err := l.repo.Users().GetByID(ctx, ticket.UserID)
	if err != nil {
		if IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := l.hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	err = l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := l.repo.Users().UpdatePasswordHashTx(ctx, tx, user.ID, hash); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to update password")
		}

		return l.repo.ResetTickets().DeleteByTicketTx(ctx, tx, ticketValue)
	})

	if err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) {
			return rich
		}
		return errors.Wrap(err, errors.CategoryInternal, "password reset transaction failed")
	}

	return nil
}
