package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer, every method is then a no-op
type Metrics struct {
	checks        *prometheus.CounterVec
	renewals      *prometheus.CounterVec
	forcedLogouts *prometheus.CounterVec
	retries       prometheus.Counter
	phase         prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "session_refresh_checks_total", Help: "Refresh checks by outcome",
		}, []string{"outcome"}),
		renewals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "session_renewals_total", Help: "Access credential renewals by result",
		}, []string{"result"}),
		forcedLogouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "session_forced_logouts_total", Help: "Sessions cleared by the manager, by reason",
		}, []string{"reason"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "session_renewal_retry_attempts_total", Help: "Renewal attempts that failed transiently",
		}),
		phase: factory.NewGauge(prometheus.GaugeOpts{
			Name: "session_phase", Help: "Current phase (0 logged out, 1 loading, 2 logged in)",
		}),
	}
}

func (m *Metrics) observeCheck(o Outcome) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeRenewal(result string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(result).Inc()
}

func (m *Metrics) observeForcedLogout(reason string) {
	if m == nil {
		return
	}
	m.forcedLogouts.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) setPhase(p Phase) {
	if m == nil {
		return
	}
	m.phase.Set(float64(p))
}
