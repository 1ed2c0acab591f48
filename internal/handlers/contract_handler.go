package handlers

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ContractHandler struct {
	contracts *services.ContractService
}

func NewContractHandler(contracts *services.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Get streams one of the role contracts. Names outside the allow-list are
// refused with 403 without touching storage.
func (h *ContractHandler) Get(c *fiber.Ctx) error {
	obj, err := h.contracts.Fetch(c.UserContext(), c.Params("filename"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, obj.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+c.Params("filename")+`"`)
	return c.Send(obj.Body)
}
