// Package metrics — метрики Prometheus в собственном реестре.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// Metrics безопасен для nil-получателя: методы ничего не делают.
type Metrics struct {
	registry   *prometheus.Registry
	ddl        *prometheus.CounterVec
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ddl: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hive",
			Name:      "ddl_statements_total",
			Help:      "DDL statements applied to entity tables, by kind.",
		}, []string{"kind"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hive",
			Name:      "operations_total",
			Help:      "Pipeline operations by operation and result (ok or error kind).",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hive",
			Name:      "operation_duration_seconds",
			Help:      "Pipeline operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		m.ddl, m.operations, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) DDL(kind string) {
	if m == nil {
		return
	}
	m.ddl.WithLabelValues(kind).Inc()
}

// Observe фиксирует результат и длительность операции.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// TrackLocks публикует число живых блокировок сущностей.
func (m *Metrics) TrackLocks(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "hive",
		Name:      "entity_locks",
		Help:      "Per-entity upsert locks currently held or awaited.",
	}, func() float64 { return float64(count()) }))
}
