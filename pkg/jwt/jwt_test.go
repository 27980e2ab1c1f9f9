package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/accountsvc/pkg/jwt"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid key", func(t *testing.T) {
		t.Parallel()

		svc, err := jwt.New([]byte("test-signing-key-at-least-32-byte"))
		require.NoError(t, err)
		require.NotNil(t, svc)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		svc, err := jwt.New(nil)
		require.ErrorIs(t, err, jwt.ErrMissingSigningKey)
		assert.Nil(t, svc)
	})
}

func TestGenerateAndParse(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString("test-signing-key-at-least-32-byte")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		claims := jwt.StandardClaims{
			Subject:   "acct-123",
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		}

		token, err := svc.Generate(claims)
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)

		var parsed jwt.StandardClaims
		require.NoError(t, svc.Parse(token, &parsed))
		assert.Equal(t, "acct-123", parsed.Subject)
		assert.Equal(t, claims.ExpiresAt, parsed.ExpiresAt)
	})

	t.Run("nil claims", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Generate(nil)
		require.ErrorIs(t, err, jwt.ErrMissingClaims)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse("", &claims), jwt.ErrMissingToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse("not.a-token", &claims), jwt.ErrMalformedToken)
		require.ErrorIs(t, svc.Parse("a.b.c.d", &claims), jwt.ErrMalformedToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		token, err := svc.Generate(jwt.StandardClaims{
			Subject:   "acct-123",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(tampered, &claims), jwt.ErrInvalidSignature)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		t.Parallel()

		other, err := jwt.NewFromString("another-signing-key-32-bytes-long")
		require.NoError(t, err)

		token, err := other.Generate(jwt.StandardClaims{
			Subject:   "acct-123",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(token, &claims), jwt.ErrInvalidSignature)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		token, err := svc.Generate(jwt.StandardClaims{
			Subject:   "acct-123",
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		})
		require.NoError(t, err)

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(token, &claims), jwt.ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		t.Parallel()

		token, err := svc.Generate(jwt.StandardClaims{
			Subject:   "acct-123",
			NotBefore: time.Now().Add(time.Hour).Unix(),
			ExpiresAt: time.Now().Add(2 * time.Hour).Unix(),
		})
		require.NoError(t, err)

		var claims jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(token, &claims), jwt.ErrMalformedToken)
	})
}

func TestReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "missing", jwt.Reason(jwt.ErrMissingToken))
	assert.Equal(t, "expired", jwt.Reason(jwt.ErrExpiredToken))
	assert.Equal(t, "signature-invalid", jwt.Reason(jwt.ErrInvalidSignature))
	assert.Equal(t, "malformed", jwt.Reason(jwt.ErrMalformedToken))
}
