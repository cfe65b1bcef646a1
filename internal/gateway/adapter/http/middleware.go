package http

import (
	"time"

	"mongodb-rest/internal/shared/logger"
	"mongodb-rest/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request correlation ID in both directions
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one, and
// stores it in the request context for logging.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// copied: the context may outlive the request in async event delivery
		requestID := fiberutils.CopyString(c.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(HeaderRequestID, requestID)
		c.Locals("requestID", requestID)
		c.SetUserContext(utils.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// AccessLogMiddleware logs one line per request after it completes
func AccessLogMiddleware(log logger.Logger) fiber.Handler {
	log = log.WithComponent("http")
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
		}

		entry := log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(started).Milliseconds(),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warn("Request failed")
		} else {
			entry.Debug("Request completed")
		}
		return err
	}
}
