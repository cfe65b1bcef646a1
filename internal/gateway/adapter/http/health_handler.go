package http

import (
	"context"
	"time"

	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	log     logger.Logger
}

// NewHealthHandler creates a handler running checks by name
func NewHealthHandler(checks map[string]HealthCheck, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 5 * time.Second,
		log:     log.WithComponent("health"),
	}
}

// RegisterRoutes registers GET /_health
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/_health", h.Health)
}

// Health runs every check and reports 503 if any fails
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	services := make(fiber.Map, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Errorf("Health check %s failed: %v", name, err)
			services[name] = err.Error()
			healthy = false
			continue
		}
		services[name] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "UNHEALTHY",
			"services": services,
		})
	}
	return c.JSON(fiber.Map{
		"status":    "HEALTHY",
		"services":  services,
		"timestamp": time.Now().UTC(),
	})
}
