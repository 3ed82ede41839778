package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"startup-standup-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Seconds   int    `json:"timeout_seconds" validate:"omitempty,min=1"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{SessionID: "x"}))

	err := ValidateRequest(sampleRequest{Seconds: -1})
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Equal(t, "session_id is required; timeout_seconds must be at least 1", fe.Message)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
	app.Get("/bad", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "Invalid session") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db password leaked") })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.JSON(SuccessResponse("ok", map[string]string{"status": "up"})) })

	tests := []struct {
		path     string
		wantCode int
		wantMsg  string
	}{
		{path: "/bad", wantCode: 400, wantMsg: "Invalid session"},
		{path: "/boom", wantCode: 500, wantMsg: "Internal server error"},
		{path: "/ok", wantCode: 200, wantMsg: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantCode == 200, body.Success)
		})
	}
}
