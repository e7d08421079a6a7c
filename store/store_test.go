package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-charger-client/internal/config"
	"github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*store.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.NewRedis(rdb, "test:", ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStoreContract(t *testing.T) {
	adapters := map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store { return store.NewMemory() },
		"file": func(t *testing.T) store.Store {
			return store.NewFile(filepath.Join(t.TempDir(), "creds.json"))
		},
		"encrypted file": func(t *testing.T) store.Store {
			return store.NewFile(filepath.Join(t.TempDir(), "creds.json"), store.WithPassphrase("hunter2"))
		},
		"redis": func(t *testing.T) store.Store {
			s, _ := newRedisStore(t, 0)
			return s
		},
	}

	for name, newStore := range adapters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Get(ctx, store.KeyAccessToken)
			require.True(t, errors.Is(err, errors.ErrNotFound))

			require.NoError(t, s.Set(ctx, store.KeyAccessToken, "a1"))
			require.NoError(t, s.Set(ctx, store.KeyRefreshToken, "r1"))
			require.NoError(t, s.Set(ctx, store.KeyAccessToken, "a2"))

			v, err := s.Get(ctx, store.KeyAccessToken)
			require.NoError(t, err)
			require.Equal(t, "a2", v)

			require.NoError(t, s.Remove(ctx, store.KeyAccessToken))
			require.NoError(t, s.Remove(ctx, store.KeyAccessToken))
			_, err = s.Get(ctx, store.KeyAccessToken)
			require.True(t, errors.Is(err, errors.ErrNotFound))

			v, err = s.Get(ctx, store.KeyRefreshToken)
			require.NoError(t, err)
			require.Equal(t, "r1", v)

			require.NoError(t, store.Close(s))
		})
	}
}

func TestFile(t *testing.T) {
	ctx := context.Background()

	t.Run("plain document with private mode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "creds.json")
		s := store.NewFile(path)
		require.NoError(t, s.Set(ctx, store.KeyAccessToken, "abc"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Equal(t, map[string]any{"token": "abc"}, doc["entries"])

		reopened := store.NewFile(path)
		v, err := reopened.Get(ctx, store.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "abc", v)
	})

	t.Run("encrypted document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.json")
		s := store.NewFile(path, store.WithPassphrase("correct horse"))
		require.NoError(t, s.Set(ctx, store.KeyRefreshToken, "secret-refresh"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NotContains(t, string(data), "secret-refresh")

		v, err := store.NewFile(path, store.WithPassphrase("correct horse")).Get(ctx, store.KeyRefreshToken)
		require.NoError(t, err)
		require.Equal(t, "secret-refresh", v)

		_, err = store.NewFile(path).Get(ctx, store.KeyRefreshToken)
		require.ErrorIs(t, err, store.ErrEncrypted)

		_, err = store.NewFile(path, store.WithPassphrase("wrong")).Get(ctx, store.KeyRefreshToken)
		require.ErrorIs(t, err, store.ErrDecrypt)
	})

	t.Run("corrupt document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))
		_, err := store.NewFile(path).Get(ctx, store.KeyAccessToken)
		require.Error(t, err)
		require.False(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("prefix and ttl", func(t *testing.T) {
		s, mr := newRedisStore(t, time.Minute)
		require.NoError(t, s.Set(ctx, store.KeyUser, `{"uid":"u"}`))

		require.True(t, mr.Exists("test:user"))
		require.Equal(t, time.Minute, mr.TTL("test:user"))

		mr.FastForward(2 * time.Minute)
		_, err := s.Get(ctx, store.KeyUser)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("unreachable server", func(t *testing.T) {
		s, mr := newRedisStore(t, 0)
		mr.Close()
		_, err := s.Get(ctx, store.KeyUser)
		require.Error(t, err)
		require.False(t, errors.Is(err, errors.ErrNotFound))
	})
}

type storeConfig struct {
	backend, path, passphrase, addr string
}

func (c storeConfig) GetStoreBackend() string { return c.backend }
func (c storeConfig) GetStoreFilePath() string { return c.path }
func (c storeConfig) GetStorePassphrase() string { return c.passphrase }
func (c storeConfig) GetRedisAddr() string { return c.addr }
func (c storeConfig) GetRedisPassword() string { return "" }
func (c storeConfig) GetRedisDB() int { return 0 }
func (c storeConfig) GetRedisPrefix() string { return "chargers:" }
func (c storeConfig) GetRedisTTL() time.Duration { return 0 }

func TestOpen(t *testing.T) {
	logger := zerolog.Nop()

	s, err := store.Open(storeConfig{backend: config.BackendMemory}, logger)
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, s)

	path := filepath.Join(t.TempDir(), "creds.json")
	s, err = store.Open(storeConfig{backend: config.BackendFile, path: path}, logger)
	require.NoError(t, err)
	require.Equal(t, path, s.(*store.File).Path())

	mr := miniredis.RunT(t)
	s, err = store.Open(storeConfig{backend: config.BackendRedis, addr: mr.Addr()}, logger)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), store.KeyAccessToken, "a"))
	require.True(t, mr.Exists("chargers:token"))
	require.NoError(t, store.Close(s))

	_, err = store.Open(storeConfig{backend: "etcd"}, logger)
	require.Error(t, err)
}
