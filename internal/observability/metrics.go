package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics counts and times API requests.
type HTTPMetrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	httpMetricsOnce     sync.Once
	httpMetricsInstance *HTTPMetrics
)

// NewHTTPMetrics registers the request metrics with the default registry once.
func NewHTTPMetrics() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetricsInstance = &HTTPMetrics{
			RequestCounter: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "boxgrid_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status_code"},
			),
			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "boxgrid_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
				},
				[]string{"method", "route"},
			),
		}
	})
	return httpMetricsInstance
}

// RecordHTTPRequest records one finished request. route is the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (m *HTTPMetrics) RecordHTTPRequest(method, route string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
}

// MetricsHandler exposes the default registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
