package identity_test

import (
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, opts ...identity.SignerOption) *identity.HMACSigner {
	t.Helper()

	signer, err := identity.NewHMACSigner("access-secret", "refresh-secret", opts...)
	require.NoError(t, err)
	return signer
}

func TestNewHMACSigner(t *testing.T) {
	t.Run("requires both secrets", func(t *testing.T) {
		_, err := identity.NewHMACSigner("", "refresh-secret")
		assert.Error(t, err)

		_, err = identity.NewHMACSigner("access-secret", "")
		assert.Error(t, err)
	})

	t.Run("accepts configured secrets", func(t *testing.T) {
		signer, err := identity.NewHMACSigner("access-secret", "refresh-secret")
		assert.NoError(t, err)
		assert.NotNil(t, signer)
	})
}

func TestSignerMintAndVerify(t *testing.T) {
	subject := identity.UserSummary{
		ID:    "8a9b73c1-90f4-4a46-9222-71f0063f55b4",
		Email: "user@example.com",
	}

	t.Run("round trips a subject through each secret class", func(t *testing.T) {
		signer := newTestSigner(t, identity.WithSignerIssuer("identity-test"))

		for _, class := range []identity.SecretClass{identity.SecretAccess, identity.SecretRefresh} {
			token, err := signer.Mint(subject, class, time.Minute)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := signer.Verify(token, class)
			require.NoError(t, err)

			assert.Equal(t, subject.ID, claims.UserID())
			assert.Equal(t, subject.Email, claims.Email)
			assert.Equal(t, subject, claims.Summary())
		}
	})

	t.Run("rejects a token presented against the wrong class", func(t *testing.T) {
		signer := newTestSigner(t)

		token, err := signer.Mint(subject, identity.SecretAccess, time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(token, identity.SecretRefresh)
		require.Error(t, err)
		assert.True(t, identity.IsUnauthorized(err))
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		signer := newTestSigner(t)

		token, err := signer.Mint(subject, identity.SecretAccess, -time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(token, identity.SecretAccess)
		require.Error(t, err)
		assert.True(t, identity.IsUnauthorized(err))
		assert.True(t, identity.IsTokenExpiredError(err))
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		signer := newTestSigner(t)

		_, err := signer.Verify("definitely.not.a.jwt", identity.SecretAccess)
		require.Error(t, err)
		assert.True(t, identity.IsUnauthorized(err))
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		signer := newTestSigner(t)

		other, err := identity.NewHMACSigner("other-access", "other-refresh")
		require.NoError(t, err)

		token, err := other.Mint(subject, identity.SecretAccess, time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(token, identity.SecretAccess)
		require.Error(t, err)
		assert.True(t, identity.IsUnauthorized(err))
	})

	t.Run("enforces the configured issuer", func(t *testing.T) {
		issuing := newTestSigner(t, identity.WithSignerIssuer("issuer-a"))
		verifying := newTestSigner(t, identity.WithSignerIssuer("issuer-b"))

		token, err := issuing.Mint(subject, identity.SecretAccess, time.Minute)
		require.NoError(t, err)

		_, err = verifying.Verify(token, identity.SecretAccess)
		assert.Error(t, err)
	})
}

func TestSecretClassString(t *testing.T) {
	assert.Equal(t, "access", identity.SecretAccess.String())
	assert.Equal(t, "refresh", identity.SecretRefresh.String())
}
