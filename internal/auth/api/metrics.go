package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts auth outcomes for the /metrics endpoint.
type Metrics struct {
	logins    *prometheus.CounterVec
	rotations *prometheus.CounterVec
	denied    *prometheus.CounterVec
}

// NewMetrics registers auth counters on reg. Pass a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradnet_auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradnet_auth_refresh_rotations_total",
			Help: "Refresh rotation attempts by result.",
		}, []string{"result"}),
		denied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gradnet_auth_gate_denied_total",
			Help: "Requests rejected by the auth gate, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) rotation(result string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(result).Inc()
}

func (m *Metrics) gateDenied(reason string) {
	if m == nil {
		return
	}
	m.denied.WithLabelValues(reason).Inc()
}
