package identity

import (
	"strings"

	"github.com/goliatone/go-router"
)

// IdentityLocalsKey is the request-locals key the access-token middleware
// stores the authenticated UserSummary under.
const IdentityLocalsKey = "identity"

const bearerScheme = "Bearer"

// AccessMiddlewareOption configures RequireAccessToken.
type AccessMiddlewareOption func(*accessMiddleware)

type accessMiddleware struct {
	signer    Signer
	localsKey string
	logger    Logger
}

// WithMiddlewareLogger sets the logger used to report verification failures.
func WithMiddlewareLogger(logger Logger) AccessMiddlewareOption {
	return func(m *accessMiddleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMiddlewareLocalsKey overrides the locals key the verified summary is
// stored under.
func WithMiddlewareLocalsKey(key string) AccessMiddlewareOption {
	return func(m *accessMiddleware) {
		if key != "" {
			m.localsKey = key
		}
	}
}

// RequireAccessToken guards a route group with access-token verification.
// The bearer token from the Authorization header is verified against the
// access secret; on success the identity summary is stored in request locals
// and on the request context, and the chain continues. Failures are written
// as structured error responses.
func RequireAccessToken(signer Signer, opts ...AccessMiddlewareOption) router.MiddlewareFunc {
	m := &accessMiddleware{
		signer:    signer,
		localsKey: IdentityLocalsKey,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := ParseBearerToken(ctx.GetString(router.HeaderAuthorization, ""))
			if err != nil {
				return WriteError(ctx, m.logger, err)
			}

			claims, err := m.signer.Verify(raw, SecretAccess)
			if err != nil {
				return WriteError(ctx, m.logger, err)
			}

			summary := claims.Summary()
			ctx.Locals(m.localsKey, &summary)
			ctx.SetContext(WithContext(ctx.Context(), &summary))

			return next(ctx)
		}
	}
}

// ParseBearerToken extracts the raw token from an Authorization header value.
// It returns ErrMissingAccessToken when the header is absent or does not use
// the Bearer scheme.
func ParseBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingAccessToken
	}

	if len(header) <= len(bearerScheme)+1 || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", ErrMissingAccessToken
	}

	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", ErrMissingAccessToken
	}
	return token, nil
}
