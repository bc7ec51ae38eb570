// Package health provides health check endpoints for the flight tracking service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/store"
)

// HealthCheck manages health check functionality.
type HealthCheck struct {
	flightStore   store.FlightStore
	logger        *zap.Logger
	mu            sync.RWMutex
	ready         bool
	lastCheck     time.Time
	checkInterval time.Duration
}

// NewHealthCheck creates a new HealthCheck instance and starts the
// background store probe.
func NewHealthCheck(flightStore store.FlightStore, logger *zap.Logger) *HealthCheck {
	hc := &HealthCheck{
		flightStore:   flightStore,
		logger:        logger,
		ready:         false,
		checkInterval: 5 * time.Second,
	}

	go hc.backgroundCheck()

	return hc
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests.
// Returns 200 OK if the process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status: "healthy",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler handles GET /ready requests.
// Returns 200 OK if the storage backend is reachable.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hc.mu.RLock()
	isReady := hc.ready
	hc.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if isReady {
		resp := ReadinessResponse{
			Status: "ready",
			Checks: map[string]string{
				"store": "healthy",
			},
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
		return
	}

	resp := ReadinessResponse{
		Status: "not ready",
		Checks: map[string]string{
			"store": "unhealthy",
		},
		Error: "storage backend unreachable",
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(resp)
}

// backgroundCheck periodically probes the storage backend.
func (hc *HealthCheck) backgroundCheck() {
	hc.check()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for range ticker.C {
		hc.check()
	}
}

func (hc *HealthCheck) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := hc.flightStore.Ping(ctx)

	hc.mu.Lock()
	wasReady := hc.ready
	hc.ready = err == nil
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	if err != nil && wasReady {
		hc.logger.Warn("storage backend became unreachable", zap.Error(err))
	}
	if err == nil && !wasReady {
		hc.logger.Info("storage backend is reachable")
	}
}
