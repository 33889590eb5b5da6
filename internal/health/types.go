package health

import "time"

// Status represents the overall health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HealthStatus represents the complete health status of the system
type HealthStatus struct {
	Status            Status             `json:"status"`
	Timestamp         time.Time          `json:"timestamp"`
	PersistenceStatus *PersistenceHealth `json:"persistence,omitempty"`
	SystemStatus      *SystemHealth      `json:"system,omitempty"`
	Errors            []string           `json:"errors,omitempty"`
}

// PersistenceHealth represents persistence backend connection health
type PersistenceHealth struct {
	Status          Status `json:"status"`
	Connected       bool   `json:"connected"`
	Backend         string `json:"backend,omitempty"` // postgres, memory
	OpenConnections int    `json:"open_connections,omitempty"`
	Latency         string `json:"latency,omitempty"`
	Error           string `json:"error,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Status         Status  `json:"status"`
	MemoryUsedMB   uint64  `json:"memory_used_mb"`
	MemoryTotalMB  uint64  `json:"memory_total_mb"`
	MemoryPercent  float64 `json:"memory_percent"`
	CPUPercent     float64 `json:"cpu_percent"`
	DiskUsedGB     uint64  `json:"disk_used_gb"`
	DiskTotalGB    uint64  `json:"disk_total_gb"`
	DiskPercent    float64 `json:"disk_percent"`
	GoRoutines     int     `json:"goroutines"`
	Error          string  `json:"error,omitempty"`
}
