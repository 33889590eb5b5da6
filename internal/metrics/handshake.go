package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpgradesAttempted tracks WebSocket upgrade attempts
	UpgradesAttempted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upgrade",
			Name:      "attempted_total",
			Help:      "Total number of WebSocket upgrade attempts",
		},
	)

	// UpgradesCompleted tracks completed WebSocket upgrades
	UpgradesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upgrade",
			Name:      "completed_total",
			Help:      "Total number of completed WebSocket upgrades",
		},
		[]string{"status"}, // success
	)

	// UpgradesFailed tracks failed upgrades by reason
	UpgradesFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upgrade",
			Name:      "failed_total",
			Help:      "Total number of failed WebSocket upgrades by reason",
		},
		[]string{"reason"}, // missing_header, bad_signature
	)

	// UpgradeDuration tracks upgrade stage durations
	UpgradeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upgrade",
			Name:      "duration_seconds",
			Help:      "WebSocket upgrade stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"stage"}, // verify_headers, lookup_user, register
	)
)
