package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mongodb-rest/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware_PropagatesToContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/probe", func(c *fiber.Ctx) error {
		return c.SendString(utils.GetRequestIDOrDefault(c.UserContext(), "none") + "|" + c.Locals("requestID").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderRequestID, "abc")
	resp, err := app.Test(req)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "abc|abc", string(buf[:n]))
	assert.Equal(t, "abc", resp.Header.Get(HeaderRequestID))
}

func TestAccessLogMiddleware_PassesErrorsThrough(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(testLogger())})
	app.Use(AccessLogMiddleware(testLogger()))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get("Content-Type"))
}
