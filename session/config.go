package session

import "github.com/jrsteele09/go-charger-client/internal/config"

// OptionsFromConfig maps the session settings onto manager options
func OptionsFromConfig(cfg config.SessionConfig) []Option {
	retry := DefaultRetryPolicy()
	retry.Attempts = cfg.GetRetryAttempts()

	return []Option{
		WithTimings(Timings{
			RefreshInterval: cfg.GetRefreshInterval(),
			AccessMargin:    cfg.GetAccessMargin(),
			RefreshMargin:   cfg.GetRefreshMargin(),
			RenewTimeout:    cfg.GetRenewTimeout(),
		}),
		WithRetryPolicy(retry),
		WithLogoutOnTransientFailure(cfg.GetLogoutOnTransientFailure()),
	}
}
