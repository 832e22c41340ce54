// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run kinds used as the "kind" label.
const (
	KindSimulate = "simulate"
	KindSweep    = "sweep"
	KindVerify   = "verify"
)

// Run statuses used as the "status" label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	PathsSimulated     prometheus.Counter
	TradesSimulated    prometheus.Counter
	RuinsTotal         prometheus.Counter
	SweepCellsComputed prometheus.Counter

	// Last run gauges
	LastRuinRate     prometheus.Gauge
	LastMedianFinal  prometheus.Gauge
	LastRunTimestamp prometheus.Gauge

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	StreamFramesSent prometheus.Counter
	ActiveStreams    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_montecarlo"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of engine runs by kind and status",
		}, []string{"kind", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Engine run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"kind"}),
		PathsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "paths_simulated_total",
			Help:      "Total number of equity paths simulated",
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_simulated_total",
			Help:      "Total number of trade steps simulated",
		}),
		RuinsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ruins_total",
			Help:      "Total number of paths that hit the liquidation threshold",
		}),
		SweepCellsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sweep_cells_computed_total",
			Help:      "Total number of sweep grid cells computed",
		}),

		LastRuinRate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_ruin_rate",
			Help:      "Ruin rate of the most recent simulation",
		}),
		LastMedianFinal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_median_final_balance",
			Help:      "Median final balance of the most recent simulation",
		}),
		LastRunTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful engine run",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		StreamFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_frames_sent_total",
			Help:      "Total number of websocket path frames sent",
		}),
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "active_streams",
			Help:      "Number of open websocket streams",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished engine run.
func RecordRun(kind, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordBatch records the volume and outcome of a simulated batch.
func RecordBatch(paths, trades, ruins int, ruinRate, medianFinal float64, unixTime int64) {
	DefaultMetrics.PathsSimulated.Add(float64(paths))
	DefaultMetrics.TradesSimulated.Add(float64(paths * trades))
	DefaultMetrics.RuinsTotal.Add(float64(ruins))
	DefaultMetrics.LastRuinRate.Set(ruinRate)
	DefaultMetrics.LastMedianFinal.Set(medianFinal)
	DefaultMetrics.LastRunTimestamp.Set(float64(unixTime))
}

// RecordSweep records computed sweep cells.
func RecordSweep(cells int, unixTime int64) {
	DefaultMetrics.SweepCellsComputed.Add(float64(cells))
	DefaultMetrics.LastRunTimestamp.Set(float64(unixTime))
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordStreamFrame increments the websocket frame counter.
func RecordStreamFrame() {
	DefaultMetrics.StreamFramesSent.Inc()
}

// StreamOpened increments the active stream gauge.
func StreamOpened() {
	DefaultMetrics.ActiveStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func StreamClosed() {
	DefaultMetrics.ActiveStreams.Dec()
}
