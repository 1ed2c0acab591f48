package handlers

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/gofiber/fiber/v2"
)

// FlowHandler edits the question flows stages point at.
type FlowHandler struct {
	flows *services.FlowService
}

func NewFlowHandler(flows *services.FlowService) *FlowHandler {
	return &FlowHandler{flows: flows}
}

func (h *FlowHandler) List(c *fiber.Ctx) error {
	names, err := h.flows.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"flows": names})
}

func (h *FlowHandler) Get(c *fiber.Ctx) error {
	name := c.Params("name")
	sections, err := h.flows.Get(c.UserContext(), name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"flow_name": name, "sections": sections})
}

func (h *FlowHandler) Create(c *fiber.Ctx) error {
	var req struct {
		FlowName string `json:"flow_name"`
		Template string `json:"template"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	sections, err := h.flows.Create(c.UserContext(), req.FlowName, req.Template)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"flow_name": req.FlowName, "sections": sections})
}

// Delete takes the name from ?flow_name= or from a {flow_name} body.
func (h *FlowHandler) Delete(c *fiber.Ctx) error {
	name := c.Query("flow_name")
	if name == "" && len(c.Body()) > 0 {
		var req struct {
			FlowName string `json:"flow_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		name = req.FlowName
	}
	if name == "" {
		return badRequest(c, "flow_name is required")
	}
	if err := h.flows.Delete(c.UserContext(), name); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Flow deleted successfully"})
}

func (h *FlowHandler) SaveSections(c *fiber.Ctx) error {
	var req struct {
		Sections []flow.Section `json:"sections"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Sections == nil {
		return badRequest(c, "sections is required")
	}
	name := c.Params("name")
	if err := h.flows.SaveSections(c.UserContext(), name, req.Sections); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"flow_name": name, "sections": req.Sections})
}

func (h *FlowHandler) Reorder(c *fiber.Ctx) error {
	var req struct {
		QuestionIDs []string `json:"question_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	name := c.Params("name")
	sections, err := h.flows.Reorder(c.UserContext(), name, c.Params("section_id"), req.QuestionIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"flow_name": name, "sections": sections})
}
