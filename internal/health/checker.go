package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oxidetalis-go/otmpd/internal/logger"
)

// CheckResult represents the result of a single named health check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// HealthCheck is a single health check function.
type HealthCheck func(ctx context.Context) error

// HealthChecker manages a named registry of health checks with result
// caching, so a noisy /health poller doesn't re-run an expensive check
// (e.g. a Postgres ping) on every request.
type HealthChecker struct {
	checks   map[string]HealthCheck
	timeout  time.Duration
	mu       sync.RWMutex
	logger   logger.Logger
	cacheTTL time.Duration
	cache    map[string]*cachedResult
}

type cachedResult struct {
	result    *CheckResult
	expiresAt time.Time
}

// NewHealthChecker creates a new named-check registry.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HealthChecker{
		checks:   make(map[string]HealthCheck),
		timeout:  timeout,
		logger:   logger.GetDefaultLogger(),
		cacheTTL: 10 * time.Second,
		cache:    make(map[string]*cachedResult),
	}
}

// SetLogger sets the logger for the health checker
func (h *HealthChecker) SetLogger(l logger.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = l
}

// SetCacheTTL sets the cache TTL for health check results
func (h *HealthChecker) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// RegisterCheck registers a new health check
func (h *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks[name] = check
	h.logger.Info("Health check registered", logger.String("name", name))
}

// UnregisterCheck removes a health check
func (h *HealthChecker) UnregisterCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.checks, name)
	delete(h.cache, name)
	h.logger.Info("Health check unregistered", logger.String("name", name))
}

// Check performs a single health check
func (h *HealthChecker) Check(ctx context.Context, name string) (*CheckResult, error) {
	h.mu.RLock()
	check, exists := h.checks[name]
	h.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("health check not found: %s", name)
	}

	if cached := h.getCachedResult(name); cached != nil {
		return cached, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	duration := time.Since(start)

	result := &CheckResult{
		Name:      name,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		h.logger.Warn("Health check failed",
			logger.String("name", name),
			logger.Error(err),
			logger.Duration("duration", duration),
		)
	} else {
		result.Status = StatusHealthy
		h.logger.Debug("Health check passed",
			logger.String("name", name),
			logger.Duration("duration", duration),
		)
	}

	h.cacheResult(name, result)

	return result, nil
}

// CheckAll performs all registered health checks concurrently.
func (h *HealthChecker) CheckAll(ctx context.Context) map[string]*CheckResult {
	h.mu.RLock()
	checkNames := make([]string, 0, len(h.checks))
	for name := range h.checks {
		checkNames = append(checkNames, name)
	}
	h.mu.RUnlock()

	results := make(map[string]*CheckResult)
	var wg sync.WaitGroup
	var resultsMu sync.Mutex

	for _, name := range checkNames {
		wg.Add(1)
		go func(checkName string) {
			defer wg.Done()

			result, err := h.Check(ctx, checkName)
			if err != nil {
				result = &CheckResult{
					Name:      checkName,
					Status:    StatusUnhealthy,
					Message:   fmt.Sprintf("Check failed: %v", err),
					Timestamp: time.Now(),
				}
			}

			resultsMu.Lock()
			results[checkName] = result
			resultsMu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// GetOverallStatus returns the overall health status
func (h *HealthChecker) GetOverallStatus(ctx context.Context) Status {
	results := h.CheckAll(ctx)

	if len(results) == 0 {
		return StatusHealthy
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}

	return StatusHealthy
}

func (h *HealthChecker) getCachedResult(name string) *CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cached, exists := h.cache[name]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil
	}

	return cached.result
}

func (h *HealthChecker) cacheResult(name string, result *CheckResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache[name] = &cachedResult{
		result:    result,
		expiresAt: time.Now().Add(h.cacheTTL),
	}
}

// ClearCache clears all cached results
func (h *HealthChecker) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = make(map[string]*cachedResult)
	h.logger.Debug("Health check cache cleared")
}

// Report is the full named-check breakdown of system health.
type Report struct {
	Status    Status                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks"`
}

// GetSystemHealth returns comprehensive system health information
func (h *HealthChecker) GetSystemHealth(ctx context.Context) *Report {
	checks := h.CheckAll(ctx)
	status := h.GetOverallStatus(ctx)

	return &Report{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// Common health check implementations

// PersistenceHealthCheck creates a health check for the persistence backend.
func PersistenceHealthCheck(checker func(context.Context) error) HealthCheck {
	return func(ctx context.Context) error {
		if checker == nil {
			return fmt.Errorf("persistence checker not configured")
		}
		return checker(ctx)
	}
}

// SigningKeyHealthCheck creates a health check for the server's signing key.
func SigningKeyHealthCheck(checker func() error) HealthCheck {
	return func(ctx context.Context) error {
		if checker == nil {
			return fmt.Errorf("signing key checker not configured")
		}

		done := make(chan error, 1)
		go func() {
			done <- checker()
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		}
	}
}

// DatabaseHealthCheck creates a health check for database connectivity
func DatabaseHealthCheck(ping func(context.Context) error) HealthCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return fmt.Errorf("database ping function not configured")
		}
		return ping(ctx)
	}
}

// ServiceHealthCheck creates a health check for external service availability
func ServiceHealthCheck(url string, checker func(context.Context, string) error) HealthCheck {
	return func(ctx context.Context) error {
		if checker == nil {
			return fmt.Errorf("service checker not configured")
		}
		return checker(ctx, url)
	}
}

// Checker is the convenience wrapper used by Server: it registers the
// "persistence" and "system" checks and renders results as a HealthStatus
// for the JSON /health endpoint.
type Checker struct {
	hc   *HealthChecker
	pool *pgxpool.Pool
}

// NewChecker creates a new health checker. pool may be nil when the
// in-memory persistence backend is in use.
func NewChecker(pool *pgxpool.Pool) *Checker {
	hc := NewHealthChecker(5 * time.Second)
	c := &Checker{hc: hc, pool: pool}

	hc.RegisterCheck("persistence", PersistenceHealthCheck(func(ctx context.Context) error {
		result := CheckPersistence(pool)
		if result.Status == StatusUnhealthy {
			return fmt.Errorf("%s", result.Error)
		}
		return nil
	}))
	hc.RegisterCheck("system", func(ctx context.Context) error {
		result := CheckSystem()
		if result.Status == StatusUnhealthy {
			return fmt.Errorf("%s", result.Error)
		}
		return nil
	})

	return c
}

// CheckAll performs all health checks and renders the aggregate HealthStatus.
func (c *Checker) CheckAll() *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	status.PersistenceStatus = CheckPersistence(c.pool)
	if status.PersistenceStatus.Status != StatusHealthy {
		status.Status = status.PersistenceStatus.Status
		if status.PersistenceStatus.Error != "" {
			status.Errors = append(status.Errors, "Persistence: "+status.PersistenceStatus.Error)
		}
	}

	status.SystemStatus = CheckSystem()
	if status.SystemStatus.Status != StatusHealthy {
		if status.Status == StatusHealthy {
			status.Status = status.SystemStatus.Status
		} else if status.SystemStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
		if status.SystemStatus.Error != "" {
			status.Errors = append(status.Errors, "System: "+status.SystemStatus.Error)
		}
	}

	return status
}
