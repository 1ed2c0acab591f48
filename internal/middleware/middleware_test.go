package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, cfg *config.Config, id uuid.UUID, role string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	return raw
}

func TestAdminRequiredChecksStoredRole(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	store, _ := memory.NewStore()
	ctx := context.Background()
	adminID, sellerID := uuid.New(), uuid.New()
	require.NoError(t, store.Profiles.Create(ctx, &models.Profile{UUID: adminID, Role: models.RoleAdmin}))
	require.NoError(t, store.Profiles.Create(ctx, &models.Profile{UUID: sellerID, Role: models.RoleSeller}))

	app := fiber.New()
	app.Get("/admin", JWTProtected(cfg), AdminRequired(store.Profiles), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", fiber.StatusUnauthorized},
		{"garbage token", "abc", fiber.StatusUnauthorized},
		{"admin", signed(t, cfg, adminID, models.RoleAdmin), fiber.StatusNoContent},
		{"seller claiming admin", signed(t, cfg, sellerID, models.RoleAdmin), fiber.StatusUnauthorized},
		{"unknown user", signed(t, cfg, uuid.New(), models.RoleAdmin), fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJWTProtectedTokenSources(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	token := signed(t, cfg, uuid.New(), models.RoleSeller)

	app := fiber.New()
	app.Get("/me", JWTProtected(cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer header", "Bearer " + token, "", fiber.StatusNoContent},
		{"session cookie", "", token, fiber.StatusNoContent},
		{"missing scheme", token, "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
