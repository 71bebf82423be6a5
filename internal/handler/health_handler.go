package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by every backing store the service depends on
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency is a backing store probed by the readiness check
type Dependency struct {
	Name    string
	Checker HealthChecker
	// Optional dependencies degrade the service instead of taking it out of rotation
	Optional bool
}

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	deps    []Dependency
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, timeout: 5 * time.Second}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. It answers 503 only when a required dependency fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := ReadyResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: make(map[string]string, len(h.deps)),
	}
	code := http.StatusOK

	for _, dep := range h.deps {
		if dep.Checker == nil {
			resp.Components[dep.Name] = "not configured"
			continue
		}
		if err := dep.Checker.HealthCheck(ctx); err != nil {
			resp.Components[dep.Name] = "unhealthy: " + err.Error()
			if !dep.Optional {
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
			} else if code == http.StatusOK {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Components[dep.Name] = "healthy"
	}

	c.JSON(code, resp)
}
