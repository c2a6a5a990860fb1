package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elonfeng/ytradar/pkg/radar"
)

// apiMetrics holds the Prometheus collectors of one server.
type apiMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func newAPIMetrics(live *radar.Live) *apiMetrics {
	m := &apiMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytradar_api_requests_total",
				Help: "Total API requests, by endpoint and status.",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ytradar_api_request_duration_seconds",
				Help:    "API request duration in seconds, by endpoint.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ytradar_snapshots_loaded",
				Help: "Number of snapshots in the served table.",
			},
			func() float64 { return float64(len(live.Load().Table().Timestamps())) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ytradar_records_loaded",
				Help: "Number of item records in the served table.",
			},
			func() float64 { return float64(live.Load().Table().Len()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ytradar_latest_snapshot_timestamp_seconds",
				Help: "Unix time of the latest served snapshot, 0 when none.",
			},
			func() float64 {
				ts, ok := live.Load().Table().Latest()
				if !ok {
					return 0
				}
				return float64(ts.Unix())
			},
		),
	)
	return m
}

func (m *apiMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with request counting and timing under endpoint.
func (m *apiMetrics) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
	}
}
