package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks proxy resolution outcomes per strategy.
type Metrics struct {
	resolutions *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics. Re-registration
// (tests constructing multiple gateways) reuses the existing collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preview",
			Subsystem: "gateway",
			Name:      "proxy_resolutions_total",
			Help:      "Proxy request resolutions by strategy and outcome",
		}, []string{"strategy", "outcome"}),
	}

	if err := prometheus.Register(m.resolutions); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.resolutions = already.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return m
}

func (m *Metrics) observe(strategy, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy, outcome).Inc()
}
