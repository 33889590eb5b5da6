package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric exposed by this package.
const namespace = "otmpd"

// Registry is the Prometheus registry all metrics in this package attach to.
// Handler exposes it; no standard go_*/process_* collectors are
// registered on it.
var Registry = prometheus.NewRegistry()

// MetricsCollector aggregates lightweight in-process statistics that are
// cheaper to query directly (e.g. from the health endpoint) than to scrape
// through Prometheus.
type MetricsCollector struct {
	mu sync.RWMutex

	// Counters
	SignatureCount     int64
	VerificationCount  int64
	SuccessfulVerifies int64
	FailedVerifies     int64
	NonceCacheHits     int64
	NonceCacheMisses   int64
	PersistenceCalls   int64
	PersistenceErrors  int64

	// Timing metrics (in microseconds)
	SignatureTimes       []int64
	VerificationTimes    []int64
	PersistenceLatencies []int64

	// Start time for uptime calculation
	startTime time.Time

	// Configuration
	maxTimingSamples int
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:        time.Now(),
		maxTimingSamples: 1000, // Keep last 1000 samples for each timing metric
	}
}

// RecordSignature records a signature operation
func (mc *MetricsCollector) RecordSignature(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SignatureCount++
	mc.recordTiming(&mc.SignatureTimes, duration)
}

// RecordVerification records a verification operation
func (mc *MetricsCollector) RecordVerification(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.VerificationCount++
	if success {
		mc.SuccessfulVerifies++
	} else {
		mc.FailedVerifies++
	}
	mc.recordTiming(&mc.VerificationTimes, duration)
}

// RecordNonceLookup records a nonce cache lookup
func (mc *MetricsCollector) RecordNonceLookup(hit bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if hit {
		mc.NonceCacheHits++
	} else {
		mc.NonceCacheMisses++
	}
}

// RecordPersistenceCall records a call into the persistence backend
func (mc *MetricsCollector) RecordPersistenceCall(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.PersistenceCalls++
	if !success {
		mc.PersistenceErrors++
	}
	mc.recordTiming(&mc.PersistenceLatencies, duration)
}

// recordTiming records a timing sample
func (mc *MetricsCollector) recordTiming(timings *[]int64, duration time.Duration) {
	microseconds := duration.Microseconds()
	*timings = append(*timings, microseconds)

	// Keep only last N samples
	if len(*timings) > mc.maxTimingSamples {
		*timings = (*timings)[len(*timings)-mc.maxTimingSamples:]
	}
}

// GetSnapshot returns a snapshot of current metrics
func (mc *MetricsCollector) GetSnapshot() *MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsSnapshot{
		Timestamp:               time.Now(),
		Uptime:                  time.Since(mc.startTime),
		SignatureCount:          mc.SignatureCount,
		VerificationCount:       mc.VerificationCount,
		SuccessfulVerifies:      mc.SuccessfulVerifies,
		FailedVerifies:          mc.FailedVerifies,
		NonceCacheHits:          mc.NonceCacheHits,
		NonceCacheMisses:        mc.NonceCacheMisses,
		PersistenceCalls:        mc.PersistenceCalls,
		PersistenceErrors:       mc.PersistenceErrors,
		AvgSignatureTime:        calculateAverage(mc.SignatureTimes),
		AvgVerificationTime:     calculateAverage(mc.VerificationTimes),
		AvgPersistenceLatency:   calculateAverage(mc.PersistenceLatencies),
		P95SignatureTime:        calculatePercentile(mc.SignatureTimes, 95),
		P95VerificationTime:     calculatePercentile(mc.VerificationTimes, 95),
		P95PersistenceLatency:   calculatePercentile(mc.PersistenceLatencies, 95),
	}
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SignatureCount = 0
	mc.VerificationCount = 0
	mc.SuccessfulVerifies = 0
	mc.FailedVerifies = 0
	mc.NonceCacheHits = 0
	mc.NonceCacheMisses = 0
	mc.PersistenceCalls = 0
	mc.PersistenceErrors = 0

	mc.SignatureTimes = nil
	mc.VerificationTimes = nil
	mc.PersistenceLatencies = nil

	mc.startTime = time.Now()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Counters
	SignatureCount     int64
	VerificationCount  int64
	SuccessfulVerifies int64
	FailedVerifies     int64
	NonceCacheHits     int64
	NonceCacheMisses   int64
	PersistenceCalls   int64
	PersistenceErrors  int64

	// Timing averages (microseconds)
	AvgSignatureTime      float64
	AvgVerificationTime   float64
	AvgPersistenceLatency float64

	// 95th percentile timings (microseconds)
	P95SignatureTime      int64
	P95VerificationTime   int64
	P95PersistenceLatency int64
}

// GetNonceCacheHitRate returns the nonce cache hit rate as a percentage
func (ms *MetricsSnapshot) GetNonceCacheHitRate() float64 {
	total := ms.NonceCacheHits + ms.NonceCacheMisses
	if total == 0 {
		return 0
	}
	return float64(ms.NonceCacheHits) / float64(total) * 100
}

// GetVerificationSuccessRate returns the verification success rate as a percentage
func (ms *MetricsSnapshot) GetVerificationSuccessRate() float64 {
	if ms.VerificationCount == 0 {
		return 0
	}
	return float64(ms.SuccessfulVerifies) / float64(ms.VerificationCount) * 100
}

// GetPersistenceErrorRate returns the persistence error rate as a percentage
func (ms *MetricsSnapshot) GetPersistenceErrorRate() float64 {
	if ms.PersistenceCalls == 0 {
		return 0
	}
	return float64(ms.PersistenceErrors) / float64(ms.PersistenceCalls) * 100
}

// Helper functions

func calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func calculatePercentile(values []int64, percentile int) int64 {
	if len(values) == 0 {
		return 0
	}

	// Simple implementation - for production, use a proper percentile algorithm
	// This is an approximation
	index := len(values) * percentile / 100
	if index >= len(values) {
		index = len(values) - 1
	}

	// Create a copy and sort (simple bubble sort for small datasets)
	sorted := make([]int64, len(values))
	copy(sorted, values)

	for i := 0; i < len(sorted)-1; i++ {
		for j := 0; j < len(sorted)-i-1; j++ {
			if sorted[j] > sorted[j+1] {
				sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
			}
		}
	}

	return sorted[index]
}

// Global metrics collector instance
var globalCollector = NewMetricsCollector()

// GetGlobalCollector returns the global metrics collector
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
