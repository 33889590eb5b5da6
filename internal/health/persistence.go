package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckPersistence checks the health of the Postgres persistence backend by
// issuing a Ping against the pool. A nil pool (the in-memory backend) is
// reported healthy without a round trip.
func CheckPersistence(pool *pgxpool.Pool) *PersistenceHealth {
	health := &PersistenceHealth{
		Connected: false,
		Status:    StatusUnhealthy,
	}

	if pool == nil {
		health.Status = StatusHealthy
		health.Backend = "memory"
		health.Connected = true
		return health
	}
	health.Backend = "postgres"

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		health.Error = fmt.Sprintf("ping failed: %v", err)
		return health
	}

	latency := time.Since(start)
	health.Latency = latency.String()
	health.Connected = true

	stat := pool.Stat()
	health.OpenConnections = int(stat.TotalConns())

	switch {
	case latency < 100*time.Millisecond:
		health.Status = StatusHealthy
	case latency < 500*time.Millisecond:
		health.Status = StatusDegraded
	default:
		health.Status = StatusUnhealthy
		health.Error = fmt.Sprintf("high latency: %v", latency)
	}

	return health
}
