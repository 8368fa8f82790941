package authentication

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewTokenIssuer([]byte("secret"), time.Hour)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer([]byte("secret"), time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }

		_, err := later.Verify(token)

		var invalidTokenErr *InvalidTokenError
		require.ErrorAs(t, err, &invalidTokenErr)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenIssuer([]byte("other"), time.Hour)
		other.now = issuer.now

		_, err := other.Verify(token)

		var invalidTokenErr *InvalidTokenError
		require.ErrorAs(t, err, &invalidTokenErr)
	})

	t.Run("missing subject", func(t *testing.T) {
		unsigned, err := issuer.Issue("")
		require.NoError(t, err)

		_, err = issuer.Verify(unsigned)

		var invalidTokenErr *InvalidTokenError
		require.ErrorAs(t, err, &invalidTokenErr)
	})
}

func TestDefaultTokenTTL(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("secret"), 0)
	assert.Equal(t, DefaultTokenTTL, issuer.ttl)
}
