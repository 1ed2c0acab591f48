package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired re-reads the caller's role from the profile table on every
// request; the role claim in the token is not trusted. Every failure is the
// same 401 so the response never says whether the account exists.
func AdminRequired(profiles repository.ProfileRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := session.GetUserID(c)
		if err != nil {
			return unauthorized(c)
		}

		profile, err := profiles.Get(c.UserContext(), userID)
		if err != nil {
			slog.Warn("admin check failed", "uuid", userID, "error", err)
			return unauthorized(c)
		}
		if profile.Role != models.RoleAdmin {
			return unauthorized(c)
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
}
