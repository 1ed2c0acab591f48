package handlers

import (
	"encoding/json"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// OnboardingHandler serves the signed-in user's own progress.
type OnboardingHandler struct {
	progress *services.ProgressService
}

func NewOnboardingHandler(progress *services.ProgressService) *OnboardingHandler {
	return &OnboardingHandler{progress: progress}
}

func caller(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := session.GetUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *OnboardingHandler) Progress(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	rows, err := h.progress.GetProgress(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"progress": rows})
}

// Current returns {current_stage: null} before onboarding starts.
func (h *OnboardingHandler) Current(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	current, err := h.progress.GetCurrentStage(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"current_stage": current})
}

func (h *OnboardingHandler) Next(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	stages, err := h.progress.NextStages(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"stages": stages})
}

func (h *OnboardingHandler) Start(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	current, err := h.progress.Start(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"current_stage": current})
}

func (h *OnboardingHandler) SaveAnswers(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	stageID, err := parseStageID(c.Params("stage_id"))
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Answers map[string]json.RawMessage `json:"answers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	row, err := h.progress.RecordAnswer(c.UserContext(), id, stageID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"progress": row})
}

func (h *OnboardingHandler) SetStatus(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	stageID, err := parseStageID(c.Params("stage_id"))
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Status == "" {
		return badRequest(c, "status is required")
	}
	row, err := h.progress.SetStatus(c.UserContext(), id, stageID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"progress": row})
}

func (h *OnboardingHandler) Advance(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	var req struct {
		NextStageID int `json:"next_stage_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.NextStageID <= 0 {
		return badRequest(c, "next_stage_id is required")
	}
	current, err := h.progress.Advance(c.UserContext(), id, req.NextStageID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"current_stage": current})
}

func (h *OnboardingHandler) Form(c *fiber.Ctx) error {
	id, ok := caller(c)
	if !ok {
		return nil
	}
	stageID, err := parseStageID(c.Params("stage_id"))
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.progress.StageForm(c.UserContext(), id, stageID, c.Query("section"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
