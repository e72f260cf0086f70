package identity_test

import (
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestBcryptHasherHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings, we reject them first
		},
	}

	hasher := identity.NewBcryptHasher(identity.DefaultBcryptCost)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = hasher.Matches(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestBcryptHasherMatches(t *testing.T) {
	hasher := identity.NewBcryptHasher(identity.DefaultBcryptCost)

	password := "testPassword123!"
	hash, err := hasher.Hash(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		digest   string
		wantErr  bool
	}{
		{
			name:     "Matching password",
			password: password,
			digest:   hash,
			wantErr:  false,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			digest:   hash,
			wantErr:  true,
		},
		{
			name:     "Invalid digest",
			password: password,
			digest:   "not-a-bcrypt-digest",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hasher.Matches(tt.password, tt.digest)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestBcryptHasherMismatchIsUnauthorized(t *testing.T) {
	hasher := identity.NewBcryptHasher(identity.DefaultBcryptCost)

	hash, err := hasher.Hash("right-password")
	assert.NoError(t, err)

	err = hasher.Matches("wrong-password", hash)
	assert.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
	assert.True(t, identity.IsUnauthorized(err))
}
