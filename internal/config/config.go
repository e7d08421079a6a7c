package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/spf13/viper"
)

const envPrefix = "CHARGERS"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	StoreConfig
	MetricsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogPretty() bool
	GetDataFolder() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetPageThreshold() int
	GetReservationsLimit() int
}

type mainConfig struct {
	EnvVars
	API
	Session
	Store
	Metrics
}

// New loads .env (if present), the optional YAML file at path and CHARGERS_* environment
// variables, in increasing order of precedence.
func New(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("[config New] failed to read %s: %w", path, err)
		}
	}

	c := mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Session: Session{v: v},
		Store:   Store{v: v},
		Metrics: Metrics{v: v},
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) validate() error {
	u, err := url.Parse(c.GetBaseURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "api.base_url %q", c.GetBaseURL())
	}
	if c.GetRequestTimeout() <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "api.timeout must be positive")
	}
	if c.GetRefreshInterval() <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "session.refresh_interval must be positive")
	}
	if c.GetAccessMargin() < 0 || c.GetRefreshMargin() < 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "session margins must not be negative")
	}
	if c.GetRenewTimeout() <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "session.renew_timeout must be positive")
	}
	if c.GetRetryAttempts() < 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "session.retry_attempts must be at least 1")
	}
	switch c.GetStoreBackend() {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "unknown store.backend %q", c.GetStoreBackend())
	}
	return nil
}
