package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString("app.name")
}

func (e EnvVars) GetEnv() string {
	env := e.v.GetString("app.env")
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString("log.level")
}

func (e EnvVars) GetLogPretty() bool {
	return e.v.GetBool("log.pretty")
}

// GetDataFolder is where the file credential store lives unless store.file_path overrides it
func (e EnvVars) GetDataFolder() string {
	return e.v.GetString("app.data_folder")
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data"
	}
	return filepath.Join(dir, "chargers")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "EV Chargers")
	v.SetDefault("app.env", "DEV")
	v.SetDefault("app.data_folder", defaultDataFolder())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("api.base_url", "http://localhost:8000/")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.page_threshold", 3)
	v.SetDefault("api.reservations_limit", 1000000)

	v.SetDefault("session.refresh_interval", "30s")
	v.SetDefault("session.access_margin", "120s")
	v.SetDefault("session.refresh_margin", "10s")
	v.SetDefault("session.renew_timeout", "15s")
	v.SetDefault("session.retry_attempts", 3)
	v.SetDefault("session.logout_on_transient_failure", false)

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.file_path", "")
	v.SetDefault("store.passphrase", "")
	v.SetDefault("store.redis_addr", "127.0.0.1:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "chargers:")
	v.SetDefault("store.redis_ttl", "0s")

	v.SetDefault("metrics.addr", "")
}
