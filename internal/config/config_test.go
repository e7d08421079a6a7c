package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-charger-client/internal/config"
	"github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		c, err := config.New("")
		require.NoError(t, err)

		require.Equal(t, "EV Chargers", c.GetAppName())
		require.Equal(t, "DEV", c.GetEnv())
		require.Equal(t, "http://localhost:8000/", c.GetBaseURL())
		require.Equal(t, 15*time.Second, c.GetRequestTimeout())
		require.Equal(t, 3, c.GetPageThreshold())
		require.Equal(t, 1000000, c.GetReservationsLimit())
		require.Equal(t, 30*time.Second, c.GetRefreshInterval())
		require.Equal(t, 120*time.Second, c.GetAccessMargin())
		require.Equal(t, 10*time.Second, c.GetRefreshMargin())
		require.Equal(t, 15*time.Second, c.GetRenewTimeout())
		require.Equal(t, 3, c.GetRetryAttempts())
		require.False(t, c.GetLogoutOnTransientFailure())
		require.Equal(t, config.BackendFile, c.GetStoreBackend())
		require.Equal(t, "credentials.json", filepath.Base(c.GetStoreFilePath()))
		require.Equal(t, "chargers:", c.GetRedisPrefix())
		require.Empty(t, c.GetMetricsAddr())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CHARGERS_API_BASE_URL", "https://api.example.com")
		t.Setenv("CHARGERS_SESSION_REFRESH_INTERVAL", "5s")
		t.Setenv("CHARGERS_STORE_BACKEND", "memory")

		c, err := config.New("")
		require.NoError(t, err)
		require.Equal(t, "https://api.example.com/", c.GetBaseURL())
		require.Equal(t, 5*time.Second, c.GetRefreshInterval())
		require.Equal(t, config.BackendMemory, c.GetStoreBackend())
	})

	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, "chargers.yaml")
		yaml := "session:\n  access_margin: 60s\nstore:\n  backend: redis\n  redis_db: 2\n  file_path: /tmp/creds.json\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

		c, err := config.New(path)
		require.NoError(t, err)
		require.Equal(t, 60*time.Second, c.GetAccessMargin())
		require.Equal(t, config.BackendRedis, c.GetStoreBackend())
		require.Equal(t, 2, c.GetRedisDB())
		require.Equal(t, "/tmp/creds.json", c.GetStoreFilePath())
	})

	t.Run("missing file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, err := config.New("does-not-exist.yaml")
		require.Error(t, err)
	})

	invalid := map[string]string{
		"CHARGERS_API_BASE_URL":            "not a url",
		"CHARGERS_SESSION_REFRESH_INTERVAL": "0s",
		"CHARGERS_SESSION_ACCESS_MARGIN":    "-1s",
		"CHARGERS_SESSION_RETRY_ATTEMPTS":   "0",
		"CHARGERS_STORE_BACKEND":            "sqlite",
	}
	for key, value := range invalid {
		t.Run("invalid "+key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			_, err := config.New("")
			require.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}
