package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes give clients a machine-checkable discriminator that survives
// message copy edits.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeNotActivated    = "ACCOUNT_NOT_ACTIVATED"
	TextCodeEmailTaken      = "EMAIL_TAKEN"
	TextCodeInvalidToken    = "INVALID_TOKEN"
	TextCodeMissingToken    = "MISSING_TOKEN"
	TextCodeStaleToken      = "STALE_REFRESH_TOKEN"
	TextCodeTicketConsumed  = "RESET_TICKET_CONSUMED"
	TextCodeDeliveryFailed  = "NOTIFICATION_FAILED"
	TextCodeInvalidLink     = "INVALID_ACTIVATION_LINK"
	TextCodeMissingSecret   = "MISSING_SIGNING_SECRET"
)

// ErrUserNotFound is returned when a lookup by email or id finds no user.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken rejects a registration for an address already in the directory.
var ErrEmailTaken = errors.New("a user with this email already exists", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrMismatchedHashAndPassword is the structured form of a bcrypt mismatch.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrAccountNotActivated blocks login until the activation link is visited.
var ErrAccountNotActivated = errors.New("account has not been activated", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeNotActivated)

// ErrInvalidActivationLink is returned when no user holds the given link.
var ErrInvalidActivationLink = errors.New("invalid activation link", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeInvalidLink)

// ErrMissingRefreshToken is returned when refresh gets no token.
var ErrMissingRefreshToken = errors.New("refresh token missing", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeMissingToken)

// ErrMissingAccessToken is returned when token validation gets no token.
var ErrMissingAccessToken = errors.New("access token missing", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeMissingToken)

// ErrRefreshTokenRequired is the bad-input variant for logout, where an
// absent token is a malformed request rather than a failed authentication.
var ErrRefreshTokenRequired = errors.New("refresh token is required", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeMissingToken)

// ErrInvalidToken covers signature, format, and expiry failures. Verification
// is all or nothing.
var ErrInvalidToken = errors.New("invalid or expired token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidToken)

// ErrStaleRefreshToken rejects a refresh token that verifies cryptographically
// but no longer matches the stored session (already rotated or revoked).
var ErrStaleRefreshToken = errors.New("refresh token is no longer recognized", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeStaleToken)

// ErrTicketConsumed is returned when a reset ticket is absent from the store,
// either never issued or already used.
var ErrTicketConsumed = errors.New("reset ticket is invalid or has been used", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTicketConsumed)

// ErrNoEmptyString rejects empty input where a value is mandatory.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// MissingSecretError builds the startup-fatal error for an unset signing
// secret. It is a constructor rather than a sentinel so the message can name
// the secret class.
func MissingSecretError(class SecretClass) *errors.Error {
	return errors.New("signing secret is not configured", errors.CategoryInternal).
		WithTextCode(TextCodeMissingSecret).
		WithMetadata(map[string]any{"secret_class": class.String()})
}

// IsUnauthorized reports whether err resolves to the Unauthorized kind.
func IsUnauthorized(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.Category == errors.CategoryAuth
}

// IsNotFound reports whether err resolves to the NotFound kind, covering
// both engine sentinels and repository record-not-found errors.
func IsNotFound(err error) bool {
	if errors.IsNotFound(err) {
		return true
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.Category == errors.CategoryNotFound
}

// IsBadRequest reports whether err resolves to the BadRequest kind: malformed
// input or an operation the caller can fix and retry.
func IsBadRequest(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	switch rich.Category {
	case errors.CategoryBadInput, errors.CategoryValidation, errors.CategoryConflict, errors.CategoryOperation:
		return true
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
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
