package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics registry for Prometheus metrics

var (
	// HTTP metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"service", "error_type"},
	)

	// Session engine metrics
	SnapshotTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_snapshot_ticks_total",
			Help: "Total number of snapshots computed by the driver",
		},
	)

	SnapshotComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_snapshot_compute_duration_seconds",
			Help:    "Time spent computing and publishing one snapshot",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	SessionOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_open",
			Help: "1 if the session is currently open, 0 otherwise",
		},
		[]string{"session"},
	)

	SessionVerdict = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_verdict",
			Help: "1 for the current trading verdict, 0 for the others",
		},
		[]string{"verdict"},
	)

	SessionLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_level",
			Help: "Current liquidity/volatility level (0=NONE, 1=LOW, 2=MEDIUM, 3=HIGH)",
		},
		[]string{"kind"},
	)

	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_sink_errors_total",
			Help: "Total number of failed snapshot deliveries per sink",
		},
		[]string{"sink"},
	)

	// WebSocket metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Total number of snapshot messages queued to WebSocket clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_dropped_total",
			Help: "Total number of snapshot messages dropped for slow WebSocket clients",
		},
	)
)
