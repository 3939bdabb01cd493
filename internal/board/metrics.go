package board

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mutations   *prometheus.CounterVec
	Boxes       *prometheus.GaugeVec
	Subscribers prometheus.Gauge
	WriteErrors *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "boxgrid_board_mutations_total",
				Help: "Total number of board mutations by action and outcome",
			}, []string{"action", "outcome"}),
			Boxes: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "boxgrid_board_boxes",
				Help: "Current number of boxes per namespace",
			}, []string{"namespace"}),
			Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "boxgrid_board_subscribers",
				Help: "Current number of snapshot subscribers",
			}),
			WriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "boxgrid_board_write_errors_total",
				Help: "Total number of persistence writes that failed synchronously",
			}, []string{"effect"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) RecordMutation(action string, err error) {
	if m == nil || m.Mutations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.Mutations.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) SetBoxes(namespace string, count int) {
	if m == nil || m.Boxes == nil {
		return
	}
	m.Boxes.WithLabelValues(namespace).Set(float64(count))
}

func (m *Metrics) SubscriberAdded() {
	if m == nil || m.Subscribers == nil {
		return
	}
	m.Subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil || m.Subscribers == nil {
		return
	}
	m.Subscribers.Dec()
}

func (m *Metrics) RecordWriteError(effect EffectKind) {
	if m == nil || m.WriteErrors == nil {
		return
	}
	m.WriteErrors.WithLabelValues(effect.String()).Inc()
}
