package config

import (
	"time"

	"github.com/spf13/viper"
)

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetAccessMargin() time.Duration
	GetRefreshMargin() time.Duration
	GetRenewTimeout() time.Duration
	GetRetryAttempts() int
	GetLogoutOnTransientFailure() bool
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetRefreshInterval is the period of the token check (tokenRefreshInterval)
func (s Session) GetRefreshInterval() time.Duration {
	return s.v.GetDuration("session.refresh_interval")
}

// GetAccessMargin renews the access token once it expires within this margin
func (s Session) GetAccessMargin() time.Duration {
	return s.v.GetDuration("session.access_margin")
}

// GetRefreshMargin logs the user out once the refresh token expires within this margin
func (s Session) GetRefreshMargin() time.Duration {
	return s.v.GetDuration("session.refresh_margin")
}

func (s Session) GetRenewTimeout() time.Duration {
	return s.v.GetDuration("session.renew_timeout")
}

func (s Session) GetRetryAttempts() int {
	return s.v.GetInt("session.retry_attempts")
}

func (s Session) GetLogoutOnTransientFailure() bool {
	return s.v.GetBool("session.logout_on_transient_failure")
}
