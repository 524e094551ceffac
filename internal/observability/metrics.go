// Package observability 协议指标, 以事件处理器的方式挂在事件管理器上
package observability

import (
	"context"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/wad"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "liftoff"

// Metrics 协议指标
type Metrics struct {
	events    *prometheus.CounterVec
	volume    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	unwound   prometheus.Counter
	lastSpark prometheus.Gauge
}

// NewMetrics 在 reg 上注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "events_total",
			Help:      "Committed protocol state transitions by event type.",
		}, []string{"type"}),
		volume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "amount_total",
			Help:      "Sum of event amounts in whole units by event type.",
		}, []string{"type"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rejected_total",
			Help:      "Rejected operations by operation and error kind.",
		}, []string{"operation", "kind"}),
		unwound: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insurance",
			Name:      "unwound_total",
			Help:      "Insurance records that latched into the unwound state.",
		}),
		lastSpark: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_spark_timestamp_seconds",
			Help:      "Unix time of the most recent spark.",
		}),
	}
}

// GetName 处理器名称
func (m *Metrics) GetName() string {
	return "metrics"
}

// Process 实现 event.Processor
func (m *Metrics) Process(_ context.Context, e *event.Event) error {
	m.events.WithLabelValues(string(e.Type)).Inc()
	if e.Amount != nil && e.Amount.Sign() > 0 {
		v, _ := wad.Decimal(e.Amount).Float64()
		m.volume.WithLabelValues(string(e.Type)).Add(v)
	}
	switch e.Type {
	case event.InsuranceUnwound:
		m.unwound.Inc()
	case event.Sparked:
		m.lastSpark.Set(float64(e.Time.Unix()))
	}
	return nil
}

// Rejected 记录一次被拒绝的操作
func (m *Metrics) Rejected(operation string, err error) {
	m.rejected.WithLabelValues(operation, liftoff.KindOf(err).String()).Inc()
}
