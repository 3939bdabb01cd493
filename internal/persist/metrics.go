package persist

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Writes        *prometheus.CounterVec
	WriteDuration *prometheus.HistogramVec
	Loads         *prometheus.CounterVec
	InFlight      prometheus.Gauge
	Purged        prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Writes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "boxgrid_persist_writes_total",
				Help: "Total number of persistence writes by tier, operation and outcome",
			}, []string{"tier", "op", "outcome"}),
			WriteDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "boxgrid_persist_write_duration_seconds",
				Help:    "Persistence write latency by tier",
				Buckets: prometheus.DefBuckets,
			}, []string{"tier", "op"}),
			Loads: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "boxgrid_persist_loads_total",
				Help: "Total number of initial loads by the source that answered",
			}, []string{"source"}),
			InFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "boxgrid_persist_remote_writes_in_flight",
				Help: "Remote writes started but not yet finished",
			}),
			Purged: promauto.NewCounter(prometheus.CounterOpts{
				Name: "boxgrid_persist_tombstones_purged_total",
				Help: "Total number of local tombstones purged",
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) RecordWrite(tier, op string, started time.Time, err error) {
	if m == nil || m.Writes == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Writes.WithLabelValues(tier, op, outcome).Inc()
	m.WriteDuration.WithLabelValues(tier, op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RecordLoad(source string) {
	if m == nil || m.Loads == nil {
		return
	}
	m.Loads.WithLabelValues(source).Inc()
}

func (m *Metrics) RemoteStarted() {
	if m == nil || m.InFlight == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) RemoteFinished() {
	if m == nil || m.InFlight == nil {
		return
	}
	m.InFlight.Dec()
}

func (m *Metrics) RecordPurged(n int64) {
	if m == nil || m.Purged == nil {
		return
	}
	m.Purged.Add(float64(n))
}
