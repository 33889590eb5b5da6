package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequestsSent tracks outgoing chat requests
	ChatRequestsSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatrequests",
			Name:      "sent_total",
			Help:      "Total number of chat requests sent",
		},
	)

	// ChatRequestsResponded tracks chat request responses by decision
	ChatRequestsResponded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatrequests",
			Name:      "responded_total",
			Help:      "Total number of chat request responses by decision",
		},
		[]string{"decision"}, // accepted, rejected
	)

	// NonceCacheSize tracks the current number of entries in the nonce cache
	NonceCacheSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "noncecache",
			Name:      "entries",
			Help:      "Current number of entries held in the nonce cache",
		},
	)

	// NonceCacheEvictions tracks nonce cache evictions by reason
	NonceCacheEvictions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "noncecache",
			Name:      "evictions_total",
			Help:      "Total number of nonce cache evictions by reason",
		},
		[]string{"reason"}, // ttl_expired, capacity
	)
)
