package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/response"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	log     *logger.Logger
}

// NewHealthHandler creates a HealthHandler. checks maps a dependency name to its probe.
func NewHealthHandler(checks map[string]HealthCheck, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		log:     log.Named("http.health"),
	}
}

// Health handles GET /health. It never touches dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ok"}))
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	outcomes := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			outcomes[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for i, name := range names {
		if outcomes[i] != nil {
			ready = false
			results[name] = "down"
			h.log.WarnContext(ctx, "readiness check failed", zap.String("dependency", name), zap.Error(outcomes[i]))
			continue
		}
		results[name] = "up"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, response.ErrorWithDetails(response.ErrCodeServiceUnavailable, "Not ready", results))
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ready", "checks": results}))
}
