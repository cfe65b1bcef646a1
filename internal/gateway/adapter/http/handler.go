package http

import (
	"context"
	"strings"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/usecase"
	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// Dispatcher executes routed requests
type Dispatcher interface {
	Dispatch(ctx context.Context, req usecase.Request) (*usecase.Outcome, error)
}

// GatewayHandler translates every resource request into a dispatch:
// route, dispatch, then map the outcome.
type GatewayHandler struct {
	router     *model.Router
	dispatcher Dispatcher
	prefix     string
	log        logger.Logger
}

// NewGatewayHandler creates a handler. prefix must match the router's prefix.
func NewGatewayHandler(router *model.Router, dispatcher Dispatcher, prefix string, log logger.Logger) *GatewayHandler {
	return &GatewayHandler{
		router:     router,
		dispatcher: dispatcher,
		prefix:     "/" + strings.Trim(prefix, "/"),
		log:        log.WithComponent("gateway_handler"),
	}
}

// RegisterRoutes registers the catch-all resource route. It must be the last
// route registered so reserved endpoints take precedence.
func (h *GatewayHandler) RegisterRoutes(router fiber.Router) {
	router.All("/*", h.Handle)
}

// Handle serves a single resource request
func (h *GatewayHandler) Handle(c *fiber.Ctx) error {
	// c.Path() aliases a pooled buffer; names in the address outlive the
	// request as cache keys and event fields.
	path := fiberutils.CopyString(c.Path())
	addr, err := h.router.Route(c.Method(), path)
	if err != nil {
		return WriteError(c, err)
	}

	out, err := h.dispatcher.Dispatch(c.UserContext(), usecase.Request{
		Method:  c.Method(),
		Address: addr,
		Body:    c.Body(),
	})
	if err != nil {
		h.log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"method": c.Method(),
			"path":   path,
			"error":  err.Error(),
		}).Debug("Request dispatch failed")
		return WriteError(c, err)
	}

	location := ""
	if out.Created != nil {
		location = h.locationOf(*out.Created)
	}
	return WriteOutcome(c, out, location)
}

func (h *GatewayHandler) locationOf(addr model.Address) string {
	path := addr.Path(h.router.Keyword())
	if h.prefix == "/" {
		return path
	}
	return h.prefix + path
}
