package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SecretClass selects the signing key material for a token. Access and
// refresh tokens are signed with distinct secrets so one can never stand in
// for the other.
type SecretClass int

const (
	SecretAccess SecretClass = iota
	SecretRefresh
)

func (c SecretClass) String() string {
	switch c {
	case SecretAccess:
		return "access"
	case SecretRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("secret-class-%d", int(c))
	}
}

// Default validity windows for the two token classes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// IdentityClaims is the signed assertion payload: registered claims plus the
// user summary the rest of the system works from.
type IdentityClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
}

// UserID returns the asserted user id, falling back to the subject claim.
func (c *IdentityClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Summary rebuilds the token payload as a UserSummary.
func (c *IdentityClaims) Summary() UserSummary {
	return UserSummary{ID: c.UserID(), Email: c.Email}
}

// HMACSigner implements Signer with HS256 over two secret classes.
type HMACSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	logger        Logger
}

var _ Signer = (*HMACSigner)(nil)

type SignerOption func(*HMACSigner)

func WithSignerIssuer(issuer string) SignerOption {
	return func(s *HMACSigner) {
		s.issuer = issuer
	}
}

func WithSignerLogger(logger Logger) SignerOption {
	return func(s *HMACSigner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHMACSigner creates a signer. An unset secret for either class is a
// configuration error and should prevent startup, not surface per request.
func NewHMACSigner(accessSecret, refreshSecret string, opts ...SignerOption) (*HMACSigner, error) {
	s := &HMACSigner{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		logger:        defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if len(s.accessSecret) == 0 {
		return nil, MissingSecretError(SecretAccess)
	}
	if len(s.refreshSecret) == 0 {
		return nil, MissingSecretError(SecretRefresh)
	}

	return s, nil
}

func (s *HMACSigner) secretFor(class SecretClass) ([]byte, error) {
	var secret []byte
	switch class {
	case SecretAccess:
		secret = s.accessSecret
	case SecretRefresh:
		secret = s.refreshSecret
	default:
		return nil, errors.New("unknown secret class", errors.CategoryInternal).
			WithMetadata(map[string]any{"secret_class": int(class)})
	}

	if len(secret) == 0 {
		return nil, MissingSecretError(class)
	}

	return secret, nil
}

// Mint produces a signed assertion over the user summary, expiring ttl from
// now.
func (s *HMACSigner) Mint(subject UserSummary, class SecretClass, ttl time.Duration) (string, error) {
	secret, err := s.secretFor(class)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// A fresh jti on every mint keeps rotated tokens distinct even
			// when two mints land on the same second.
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:   subject.ID,
		Email: subject.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify parses and validates a token against the given secret class. There
// is no partial-trust mode: any signature, format, or expiry failure yields
// ErrInvalidToken.
func (s *HMACSigner) Verify(token string, class SecretClass) (*IdentityClaims, error) {
	secret, err := s.secretFor(class)
	if err != nil {
		return nil, err
	}

	parserOptions := make([]jwt.ParserOption, 0, 1)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("Signer verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, parserOptions...)

	if err != nil {
		return nil, errors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(ErrInvalidToken.TextCode)
	}

	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid {
		s.logger.Error("Signer verify could not decode claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}
