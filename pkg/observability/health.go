package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus represents the health status of the adapter process
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker manages health checks for the audit database and bank transport
type HealthChecker struct {
	dbPool       *pgxpool.Pool
	circuitState func() string
}

// NewHealthChecker creates a new HealthChecker. Either argument may be nil.
func NewHealthChecker(dbPool *pgxpool.Pool, circuitState func() string) *HealthChecker {
	return &HealthChecker{
		dbPool:       dbPool,
		circuitState: circuitState,
	}
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := "healthy"

	// Audit database health check
	if h.dbPool != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.dbPool.Ping(dbCtx); err != nil {
			checks["audit_database"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks["audit_database"] = "healthy"
		}
	} else {
		checks["audit_database"] = "not configured"
	}

	// An open breaker means the bank is failing; report degraded rather than down
	if h.circuitState != nil {
		state := h.circuitState()
		checks["bank_circuit"] = state
		if state != "closed" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}
