package keystore

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/procurehub/portal-client/internal/infrastructure/config"
)

func setupTestRedis(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.RedisConfig{
		URL:          mr.Addr(),
		DB:           0,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	s, err := NewRedis(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := setupTestRedis(t)
	exerciseStore(t, s)
}

func TestRedisStore_Prefixing(t *testing.T) {
	s, mr := setupTestRedis(t)

	require.NoError(t, s.Set(KeyToken, "jwt"))
	got, err := mr.Get("portal:session:" + KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "jwt", got)
}

func TestNewRedis_Validation(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		_, err := NewRedis(&config.RedisConfig{URL: "localhost:6379"}, nil)
		assert.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewRedis(nil, zaptest.NewLogger(t))
		assert.Error(t, err)
	})

	t.Run("connection failure", func(t *testing.T) {
		cfg := &config.RedisConfig{
			URL:         "localhost:1",
			DialTimeout: 100 * time.Millisecond,
		}
		_, err := NewRedis(cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis connection failed")
	})
}
