package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 3 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is one component probed by /ready. A failing optional
// dependency degrades the service without taking it out of rotation.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	deps []Dependency
}

// NewHealthHandler probes deps on /ready. Dependencies with a nil Pinger
// are reported as not configured.
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health answers as long as the process serves HTTP
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready pings every dependency concurrently
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make([]error, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		if dep.Pinger == nil {
			continue
		}
		wg.Add(1)
		go func(i int, p Pinger) {
			defer wg.Done()
			results[i] = p.Ping(ctx)
		}(i, dep.Pinger)
	}
	wg.Wait()

	resp := ReadyResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: make(map[string]string, len(h.deps)),
	}
	code := http.StatusOK
	for i, dep := range h.deps {
		switch {
		case dep.Pinger == nil:
			resp.Components[dep.Name] = "not configured"
		case results[i] == nil:
			resp.Components[dep.Name] = "healthy"
		case dep.Optional:
			resp.Components[dep.Name] = "degraded: " + results[i].Error()
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
		default:
			resp.Components[dep.Name] = "unhealthy: " + results[i].Error()
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, resp)
}
