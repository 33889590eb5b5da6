package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oxidetalis-go/otmpd/internal/logger"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

// Server represents the health check HTTP server
type Server struct {
	checker *Checker
	logger  logger.Logger
	port    int
	server  *http.Server
}

// NewServer creates a new health check server
func NewServer(checker *Checker, logger logger.Logger, port int) *Server {
	return &Server{
		checker: checker,
		logger:  logger,
		port:    port,
	}
}

// Start starts the health check server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("Starting health check server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health check server error: " + err.Error())
		}
	}()

	return nil
}

// Stop stops the health check server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles the main health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.checker.CheckAll()

	// Set HTTP status code based on health status
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else if status.Status == StatusDegraded {
		w.WriteHeader(http.StatusOK) // 200 but with degraded status in body
	} else {
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleLiveness handles the liveness probe endpoint
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	// Simple liveness check - just return OK if the server is running
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// handleReadiness handles the readiness probe endpoint
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	status := s.checker.CheckAll()

	// Check critical component: the persistence backend must be reachable
	ready := status.PersistenceStatus != nil && status.PersistenceStatus.Connected

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"persistence": map[string]interface{}{
			"connected": status.PersistenceStatus != nil && status.PersistenceStatus.Connected,
			"status":    status.PersistenceStatus.Status,
		},
	}

	if !ready {
		response["errors"] = status.Errors
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics handles the metrics endpoint
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	collector := metrics.GetGlobalCollector()
	snapshot := collector.GetSnapshot()

	// Convert to JSON-friendly format
	response := map[string]interface{}{
		"timestamp": snapshot.Timestamp.UTC().Format(time.RFC3339),
		"uptime":    snapshot.Uptime.String(),
		"counters": map[string]int64{
			"signatures":          snapshot.SignatureCount,
			"verifications":       snapshot.VerificationCount,
			"successful_verifies": snapshot.SuccessfulVerifies,
			"failed_verifies":     snapshot.FailedVerifies,
			"nonce_cache_hits":    snapshot.NonceCacheHits,
			"nonce_cache_misses":  snapshot.NonceCacheMisses,
			"persistence_calls":   snapshot.PersistenceCalls,
			"persistence_errors":  snapshot.PersistenceErrors,
		},
		"timings": map[string]interface{}{
			"avg_signature_time_us":     snapshot.AvgSignatureTime,
			"avg_verification_time_us":  snapshot.AvgVerificationTime,
			"avg_persistence_time_us":   snapshot.AvgPersistenceLatency,
			"p95_signature_time_us":     snapshot.P95SignatureTime,
			"p95_verification_time_us":  snapshot.P95VerificationTime,
			"p95_persistence_time_us":   snapshot.P95PersistenceLatency,
		},
		"rates": map[string]float64{
			"nonce_cache_hit_rate":      snapshot.GetNonceCacheHitRate(),
			"verification_success_rate": snapshot.GetVerificationSuccessRate(),
			"persistence_error_rate":    snapshot.GetPersistenceErrorRate(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// StartHealthServer is a convenience function to start a health server
func StartHealthServer(port int, pool *pgxpool.Pool) (*Server, error) {
	// Create health checker
	checker := NewChecker(pool)

	// Create logger
	log := logger.NewLogger(os.Stdout, logger.InfoLevel)

	// Create and start server
	server := NewServer(checker, log, port)
	if err := server.Start(); err != nil {
		return nil, err
	}

	return server, nil
}
