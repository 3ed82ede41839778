package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"startup-standup-be/internal/bootstrap"
	"startup-standup-be/internal/config"
	"startup-standup-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.App.Port = "0"
	cfg.App.LogFilePath = filepath.Join(dir, "standup.log")
	cfg.App.CorsAllowedOrigins = "*"
	cfg.App.StaticDir = filepath.Join(dir, "missing")
	cfg.Scenario.Key = "standup"
	cfg.Scenario.TimeLimitSeconds = 240
	cfg.Scenario.RecordSecondsDefault = 5
	cfg.Session.TTL = time.Hour
	cfg.Session.MaxSessions = 10
	cfg.Evaluator.Timeout = time.Second

	container := bootstrap.NewContainer(cfg)
	t.Cleanup(container.Close)

	return New(cfg, container).GetApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestServer_PlaysFirstTurn(t *testing.T) {
	app := newTestServer(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/start", `{"timeout_seconds": 5}`)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var start dto.StartSessionResponse
	require.NoError(t, json.Unmarshal(body, &start))
	assert.Len(t, start.SessionID, 32)
	assert.Equal(t, 30, start.TimeoutSeconds)
	assert.Equal(t, 1, start.Stage.Index)

	status, body = doJSON(t, app, fiber.MethodPost, "/api/message",
		`{"session_id": "`+start.SessionID+`", "text": "this place is a war zone"}`)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var msg dto.SendMessageResponse
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.NotEmpty(t, msg.SarahReply)
	assert.False(t, msg.Completed)
	require.NotNil(t, msg.Stage)
	assert.Equal(t, 2, msg.Stage.Index)
}

func TestServer_Errors(t *testing.T) {
	app := newTestServer(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/message", `{"session_id": "nope", "text": "hi"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), `"error":"Invalid session"`)

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/unknown", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/config", "")
	require.Equal(t, fiber.StatusOK, status)
	var cfg dto.ConfigResponse
	require.NoError(t, json.Unmarshal(body, &cfg))
	assert.Equal(t, 240, cfg.DefaultTimeoutSeconds)
	assert.Empty(t, cfg.Evaluators)
}
