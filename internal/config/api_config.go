package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetBaseURL always ends with a slash so relative endpoint paths resolve under it
func (a API) GetBaseURL() string {
	base := a.v.GetString("api.base_url")
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration("api.timeout")
}

// GetPageThreshold is the page size at or above which another charger page is assumed to exist
func (a API) GetPageThreshold() int {
	return a.v.GetInt("api.page_threshold")
}

func (a API) GetReservationsLimit() int {
	return a.v.GetInt("api.reservations_limit")
}

type MetricsConfig interface {
	GetMetricsAddr() string
}

type Metrics struct {
	v *viper.Viper
}

var _ MetricsConfig = Metrics{}

func (m Metrics) GetMetricsAddr() string {
	return m.v.GetString("metrics.addr")
}
