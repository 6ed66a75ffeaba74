package evolution

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// signalsTotal counts detected evolution/feedback signals by kind,
// alongside the pure Detect* computation above. Mirrors the teacher's
// engine/infra/monitoring counters, scaled down to this package's single
// metric: a plain CounterVec rather than a full OTel meter provider,
// since FlowScript's core has no server process to export a /metrics
// endpoint from on its own.
var signalsTotal = prom.NewCounterVec(prom.CounterOpts{
	Namespace: "flowscript",
	Subsystem: "evolution",
	Name:      "signals_total",
	Help:      "Count of evolution/feedback signals detected, by signal kind.",
}, []string{"signal"})

// RegisterMetrics registers this package's Prometheus collectors with reg.
// Optional: callers that don't want evolution metrics exported never call
// it, and the counters still increment in-process either way.
func RegisterMetrics(reg prom.Registerer) error {
	return reg.Register(signalsTotal)
}

func observe(signal Signal) {
	signalsTotal.WithLabelValues(string(signal)).Inc()
}
