package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes {error: message}. 5xx messages are generic; the cause
// is logged.
func respondError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	message := err.Error()
	if code >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
		if errors.Is(err, services.ErrUpstream) {
			message = "Upstream service failed"
		}
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: message})
}

func invalid(message string) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, message)
}

func parseUUID(raw, name string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, invalid(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid " + name)
	}
	return id, nil
}

func parseStageID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, invalid("invalid stage_id")
	}
	return id, nil
}
