package http

import (
	"errors"
	"strings"

	"mongodb-rest/internal/gateway/usecase"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteOutcome maps a dispatched outcome onto the response.
// location is the URL of a newly inserted document.
func WriteOutcome(c *fiber.Ctx, out *usecase.Outcome, location string) error {
	switch out.Kind {
	case usecase.OutcomeListed:
		if out.Documents != nil {
			return c.Status(fiber.StatusOK).JSON(out.Documents)
		}
		names := out.Names
		if names == nil {
			names = []string{}
		}
		return c.Status(fiber.StatusOK).JSON(names)
	case usecase.OutcomeFetched:
		return c.Status(fiber.StatusOK).JSON(out.Document)
	case usecase.OutcomeInserted:
		if location != "" {
			c.Location(location)
		}
		return c.Status(fiber.StatusCreated).JSON(out.Ack)
	case usecase.OutcomeUpdated, usecase.OutcomeDeleted:
		return c.Status(fiber.StatusOK).JSON(out.Ack)
	default:
		return WriteError(c, apperrors.NewInternalError("unknown outcome"))
	}
}

// WriteError maps err onto a JSON error response
func WriteError(c *fiber.Ctx, err error) error {
	body := errorBody(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeMethodNotAllowed {
		if allowed, ok := appErr.Details["allowed"].([]string); ok {
			c.Set(fiber.HeaderAllow, strings.Join(allowed, ", "))
		}
	}

	return c.Status(apperrors.HTTPStatus(err)).JSON(body)
}

func errorBody(err error) ErrorResponse {
	body := ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Error = errorCode(appErr)
		body.Message = appErr.Message
		if len(appErr.Details) > 0 {
			body.Details = appErr.Details
		}
	}
	return body
}

func errorCode(appErr *apperrors.AppError) string {
	if appErr.Code != "" {
		return appErr.Code
	}
	return strings.ToLower(string(appErr.Type))
}

// NewErrorHandler returns a fiber ErrorHandler that keeps every response JSON
func NewErrorHandler(log logger.Logger) fiber.ErrorHandler {
	log = log.WithComponent("http")
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error:   strings.ReplaceAll(strings.ToLower(fiberutils.StatusMessage(fiberErr.Code)), " ", "_"),
				Message: fiberErr.Message,
			})
		}

		if apperrors.HTTPStatus(err) >= fiber.StatusInternalServerError {
			log.WithContext(c.UserContext()).Errorf("HTTP Error: %v", err)
		}
		return WriteError(c, err)
	}
}
