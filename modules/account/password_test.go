package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/accountsvc/modules/account"
)

func TestNewHasher(t *testing.T) {
	t.Parallel()

	t.Run("accepts minimum cost", func(t *testing.T) {
		t.Parallel()

		h, err := account.NewHasher(10)
		require.NoError(t, err)
		require.NotNil(t, h)
	})

	t.Run("rejects cost below minimum", func(t *testing.T) {
		t.Parallel()

		_, err := account.NewHasher(4)
		require.Error(t, err)
	})
}

func TestHasher(t *testing.T) {
	t.Parallel()

	hasher, err := account.NewHasher(10)
	require.NoError(t, err)

	t.Run("hash verifies against original password", func(t *testing.T) {
		t.Parallel()

		hash, err := hasher.Hash("correct horse battery staple")
		require.NoError(t, err)

		require.NoError(t, hasher.Compare(hash, "correct horse battery staple"))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		t.Parallel()

		hash, err := hasher.Hash("correct horse battery staple")
		require.NoError(t, err)

		require.ErrorIs(t, hasher.Compare(hash, "wrong password"), account.ErrInvalidCredentials)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		t.Parallel()

		first, err := hasher.Hash("secret123")
		require.NoError(t, err)
		second, err := hasher.Hash("secret123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		require.NoError(t, hasher.Compare(first, "secret123"))
		require.NoError(t, hasher.Compare(second, "secret123"))
	})

	t.Run("garbage hash fails", func(t *testing.T) {
		t.Parallel()

		require.ErrorIs(t, hasher.Compare([]byte("not-a-hash"), "secret123"), account.ErrInvalidCredentials)
	})
}
