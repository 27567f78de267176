package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the service and its dependencies
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *logger.Logger
}

// NewHealthHandler creates a health handler running the named checks
func NewHealthHandler(checks map[string]HealthCheck, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  log,
	}
}

// Health handles GET /health
// @Summary Health check
// @Description Reports "healthy" when every dependency answers, "degraded" otherwise
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "All dependencies healthy"
// @Failure 503 {object} map[string]interface{} "A dependency is down"
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warnf("Health check %s failed: %v", name, err)
			components[name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "up"
	}

	response.JSON(w, code, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}
