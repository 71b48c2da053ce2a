package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-tutor-be/internal/bootstrap"
	"ai-tutor-be/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "server-test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_CONNECTION_STRING", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("NATS_ENABLED", "false")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("MEMORY_PROVIDER", "local")
	t.Setenv("JWT_SECRET", jwtSecret)
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "app.log"))
	t.Setenv("LLM_LOG_FILE_PATH", filepath.Join(dir, "llm.log"))

	cfg := config.Load()
	require.NoError(t, cfg.Validate())

	container, err := bootstrap.NewContainer(context.Background(), nil, cfg)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(cfg, container)
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return tok
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestServer(t).GetApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestChatRoutes(t *testing.T) {
	app := newTestServer(t).GetApp()

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/chat",
			strings.NewReader(`{"messages":[{"id":"m1","role":"user","content":"hi"}]}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "nobody"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Failed during PROCESS", body["details"])
	})

	t.Run("empty messages", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "u1"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestMemoryRoute_RejectsUnknownCommand(t *testing.T) {
	app := newTestServer(t).GetApp()

	req := httptest.NewRequest(fiber.MethodPost, "/api/memory", strings.NewReader(`{"command":"purge"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "u1"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
