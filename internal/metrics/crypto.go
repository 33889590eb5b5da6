package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CryptoOperations tracks crypto operations
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operations_total",
			Help:      "Total number of cryptographic operations",
		},
		[]string{"operation"}, // shared_secret, sign, verify
	)

	// CryptoErrors tracks crypto errors
	CryptoErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "errors_total",
			Help:      "Total number of cryptographic errors",
		},
		[]string{"operation"}, // shared_secret, sign, verify
	)

	// CryptoOperationDuration tracks crypto operation durations
	CryptoOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operation_duration_seconds",
			Help:      "Cryptographic operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to 163ms
		},
		[]string{"operation"}, // shared_secret, sign, verify
	)
)
