package handlers

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/gofiber/fiber/v2"
)

type EmailHandler struct {
	emails *services.EmailService
}

func NewEmailHandler(emails *services.EmailService) *EmailHandler {
	return &EmailHandler{emails: emails}
}

func (h *EmailHandler) Send(c *fiber.Ctx) error {
	var req services.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.emails.Send(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Email sent successfully"})
}
