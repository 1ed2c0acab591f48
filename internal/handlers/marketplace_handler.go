package handlers

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MarketplaceHandler struct {
	marketplace *services.MarketplaceService
}

func NewMarketplaceHandler(marketplace *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{marketplace: marketplace}
}

func (h *MarketplaceHandler) List(c *fiber.Ctx) error {
	profiles, total, err := h.marketplace.List(
		c.UserContext(),
		c.Query("role"),
		c.QueryInt("limit", services.DefaultPageSize),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profiles": profiles, "total": total})
}
