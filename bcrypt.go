package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost used when no explicit cost is configured.
const DefaultBcryptCost = 10

// BcryptHasher implements Hasher over bcrypt with a configurable cost.
type BcryptHasher struct {
	cost int
}

var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher; a non-positive cost falls back to
// DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash will generate a salted password hash
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrNoEmptyString
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	return string(digest), err
}

// Matches will validate the given cleartext password against the digest.
// Mismatches map to ErrMismatchedHashAndPassword so callers never branch on
// bcrypt internals.
func (h *BcryptHasher) Matches(plaintext, digest string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
