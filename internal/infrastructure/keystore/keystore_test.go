package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/procurehub/portal-client/internal/infrastructure/config"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Get(KeyToken)
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.Set(KeyToken, "jwt-value"))
	got, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "jwt-value", got)

	require.NoError(t, s.Set(KeyToken, "replaced"))
	got, err = s.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "replaced", got)

	require.NoError(t, s.Delete(KeyToken))
	_, err = s.Get(KeyToken)
	assert.True(t, IsNotFound(err))

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete("never-set"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session.json")

	s, err := NewFile(path)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	t.Run("survives reopen", func(t *testing.T) {
		require.NoError(t, s.Set(KeyUser, `{"id":"u1"}`))

		reopened, err := NewFile(path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(KeyUser)
		require.NoError(t, err)
		assert.Equal(t, `{"id":"u1"}`, got)
	})

	t.Run("rejects corrupt file", func(t *testing.T) {
		bad := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
		_, err := NewFile(bad)
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("memory", func(t *testing.T) {
		s, err := Open(&config.KeystoreConfig{Backend: "memory"}, logger)
		require.NoError(t, err)
		defer s.Close()
		exerciseStore(t, s)
	})

	t.Run("defaults to memory", func(t *testing.T) {
		s, err := Open(&config.KeystoreConfig{}, logger)
		require.NoError(t, err)
		defer s.Close()
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.json")
		s, err := Open(&config.KeystoreConfig{Backend: "file", Path: path}, logger)
		require.NoError(t, err)
		defer s.Close()
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(&config.KeystoreConfig{Backend: "etcd"}, logger)
		assert.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := Open(nil, logger)
		assert.Error(t, err)
	})
}
