package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"not found", &progress.Error{Kind: progress.KindNotFound, Op: "x", Msg: "no progress"}, fiber.StatusNotFound, "not found"},
		{"forbidden", &progress.Error{Kind: progress.KindForbidden, Op: "x", Msg: "module 2 is locked"}, fiber.StatusForbidden, "forbidden"},
		{"validation", &progress.Error{Kind: progress.KindValidation, Op: "x", Msg: "bad"}, fiber.StatusUnprocessableEntity, "validation"},
		{"invalid state wrapped", fmt.Errorf("outer: %w", &progress.Error{Kind: progress.KindInvalidState, Op: "x", Msg: "max attempts"}), fiber.StatusConflict, "invalid state"},
		{"storage", errors.New("connection refused"), fiber.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return ProgressErrorResponse(c, tt.err, "Unable to update progress!")
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body struct {
				Status  bool              `json:"status"`
				Message string            `json:"message"`
				Data    map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Status)
			assert.Equal(t, "Unable to update progress!", body.Message)
			assert.Equal(t, tt.reason, body.Data["reason"])
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	app := fiber.New()
	app.Get("/me", JWTMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userId"), "role": c.Locals("role")})
	})

	token, err := GenerateJWT(17, "Asha", "USER", "asha@example.com", "")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint(17), body.UserID)
	assert.Equal(t, "USER", body.Role)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 17,
		Role:   "USER",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	noUser, err := GenerateJWT(0, "", "USER", "", "")
	require.NoError(t, err)

	for _, header := range []string{"", "Token " + token, "Bearer not-a-jwt", "Bearer " + expiredToken, "Bearer " + noUser} {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestRequireRole_RejectsOnTokenRole(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: "test-secret"}
	// no database: a mismatched role claim must not reach a lookup
	prev := database.Database
	database.Database = database.DbInstance{}
	t.Cleanup(func() { database.Database = prev })

	app := fiber.New()
	app.Get("/admin", JWTMiddleware, RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token, err := GenerateJWT(17, "Asha", models.RoleUser, "asha@example.com", "")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
