package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsRegistered tracks total connections added to the registry
	ConnectionsRegistered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "registered_total",
			Help:      "Total number of connections registered",
		},
		[]string{"status"}, // success
	)

	// ConnectionsOnline tracks currently online connections
	ConnectionsOnline = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "online",
			Help:      "Number of currently online connections",
		},
	)

	// ConnectionsReaped tracks connections dropped by the liveness reaper
	ConnectionsReaped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "reaped_total",
			Help:      "Total number of connections reaped for missed pong liveness",
		},
	)

	// ConnectionsClosed tracks closed connections
	ConnectionsClosed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "closed_total",
			Help:      "Total number of closed connections",
		},
		[]string{"reason"}, // client_close, reaped
	)

	// ConnectionOperationDuration tracks registry operation durations
	ConnectionOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "operation_duration_seconds",
			Help:      "Connection registry operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"operation"}, // ping_all, reap
	)

	// OutboundQueueDepth tracks per-connection outbound queue depth
	OutboundQueueDepth = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "outbound_queue_depth",
			Help:      "Depth of a connection's outbound queue at send time",
			Buckets:   prometheus.LinearBuckets(0, 32, 9), // 0..256
		},
	)
)
