package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed tracks processed messages
	MessagesProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "processed_total",
			Help:      "Total number of messages processed",
		},
		[]string{"type", "status"}, // text, success/failure
	)

	// ReplayAttacksDetected tracks detected replay attacks
	ReplayAttacksDetected = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "replay_attacks_detected_total",
			Help:      "Total number of replay attacks detected",
		},
	)

	// NonceValidations tracks nonce validations
	NonceValidations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "nonce_validations_total",
			Help:      "Total number of nonce validations",
		},
		[]string{"status"}, // accepted, replay, stale_timestamp
	)

	// MessageProcessingDuration tracks message processing duration
	MessageProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "processing_duration_seconds",
			Help:      "Message processing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~205ms
		},
	)

	// MessageSize tracks message sizes
	MessageSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "size_bytes",
			Help:      "Message size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
	)
)
