// Package metrics holds the prometheus collectors of the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Operations     *prometheus.CounterVec
	OperationDur   *prometheus.HistogramVec
	StatusDisables *prometheus.CounterVec
}

// New builds the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Name:      "operations_total",
			Help:      "Engine operations by name and result.",
		}, []string{"op", "result"}),
		OperationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clmm",
			Name:      "operation_duration_seconds",
			Help:      "Time spent inside an engine operation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
		StatusDisables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Name:      "status_disables_total",
			Help:      "Pool status bits switched off because a vault fell short.",
		}, []string{"bit"}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.OperationDur, m.StatusDisables)
	}
	return m
}

// Observe records one finished operation. A nil receiver does nothing.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.OperationDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) StatusDisabled(bit string) {
	if m == nil {
		return
	}
	m.StatusDisables.WithLabelValues(bit).Inc()
}
