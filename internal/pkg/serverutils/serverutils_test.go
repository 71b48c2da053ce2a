package serverutils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-tutor-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", JwtMiddleware(secret), func(ctx *fiber.Ctx) error {
		userID, err := UserID(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("ok", userID))
	})
	app.Get("/fail/:kind", func(ctx *fiber.Ctx) error {
		err := apperror.New(apperror.Kind(ctx.Params("kind")), "boom")
		return apperror.WithStep(err, "REASON", apperror.KindLLM)
	})
	return app
}

func TestJwtMiddleware(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer nope", fiber.StatusUnauthorized},
		{"no user claim", "Bearer " + signed(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), fiber.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), fiber.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(time.Hour).Unix()}), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := newApp()

	tests := []struct {
		kind   apperror.Kind
		status int
	}{
		{apperror.KindAuth, 401},
		{apperror.KindValidation, 400},
		{apperror.KindNotFound, 404},
		{apperror.KindLLM, 500},
		{apperror.KindEmbedding, 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/fail/"+string(tt.kind), nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "boom", body["error"])
			assert.Equal(t, "Failed during REASON", body["details"])
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Command string `validate:"required,oneof=add search delete"`
		Limit   int    `validate:"gte=0,lte=5"`
	}
	assert.NoError(t, ValidateRequest(req{Command: "add"}))

	err := ValidateRequest(req{Command: "drop", Limit: 9})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Contains(t, err.Error(), "Command must be one of")
	assert.Contains(t, err.Error(), "Limit failed on lte")
}
