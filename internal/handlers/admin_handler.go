package handlers

import (
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminHandler backs the admin console. Every route sits behind
// middleware.AdminRequired.
type AdminHandler struct {
	admin     *services.AdminService
	progress  *services.ProgressService
	analytics *services.AnalyticsService
}

func NewAdminHandler(admin *services.AdminService, progress *services.ProgressService, analytics *services.AnalyticsService) *AdminHandler {
	return &AdminHandler{admin: admin, progress: progress, analytics: analytics}
}

// Stages

func (h *AdminHandler) ListStages(c *fiber.Ctx) error {
	stages, err := h.admin.ListStages(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"stages": stages})
}

func (h *AdminHandler) CreateStage(c *fiber.Ctx) error {
	var stage models.Stage
	if err := c.BodyParser(&stage); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.admin.CreateStage(c.UserContext(), &stage); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"stage": stage})
}

// UpdateStage takes the id from the path when routed as /stages/:stage_id,
// otherwise from the body.
func (h *AdminHandler) UpdateStage(c *fiber.Ctx) error {
	var stage models.Stage
	if err := c.BodyParser(&stage); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if raw := c.Params("stage_id"); raw != "" {
		id, err := parseStageID(raw)
		if err != nil {
			return respondError(c, err)
		}
		stage.ID = id
	}
	if stage.ID <= 0 {
		return badRequest(c, "id is required")
	}
	if err := h.admin.UpdateStage(c.UserContext(), &stage); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"stage": stage})
}

// NextStages answers ?role=&current_stage_id=.
func (h *AdminHandler) NextStages(c *fiber.Ctx) error {
	role := c.Query("role")
	if role == "" {
		return badRequest(c, "role is required")
	}
	current, err := parseStageID(c.Query("current_stage_id"))
	if err != nil {
		return respondError(c, invalid("invalid current_stage_id"))
	}
	stages, err := h.admin.NextStages(c.UserContext(), role, current)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"stages": stages})
}

// Onboarding progress

func (h *AdminHandler) GetProgress(c *fiber.Ctx) error {
	id, err := parseUUID(c.Query("user_uuid"), "user_uuid")
	if err != nil {
		return respondError(c, err)
	}
	rows, err := h.progress.GetProgress(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"progress": rows})
}

// SetProgress only updates an existing row; it never creates one.
func (h *AdminHandler) SetProgress(c *fiber.Ctx) error {
	var req struct {
		UUID    string `json:"uuid"`
		StageID int    `json:"stage_id"`
		Status  string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UUID == "" {
		req.UUID = c.Query("user_uuid")
	}
	if req.UUID == "" || req.StageID <= 0 || req.Status == "" {
		return badRequest(c, "uuid, stage_id and status are required")
	}
	id, err := parseUUID(req.UUID, "uuid")
	if err != nil {
		return respondError(c, err)
	}
	row, err := h.progress.AdminSetStatus(c.UserContext(), id, req.StageID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"progress": row})
}

// Notes

func (h *AdminHandler) GetNote(c *fiber.Ctx) error {
	id, err := parseUUID(c.Query("profile_uuid"), "profile_uuid")
	if err != nil {
		return respondError(c, err)
	}
	note, err := h.admin.GetNote(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"note": note})
}

func (h *AdminHandler) SaveNote(c *fiber.Ctx) error {
	var req struct {
		ProfileUUID string `json:"profile_uuid"`
		Note        string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	id, err := parseUUID(req.ProfileUUID, "profile_uuid")
	if err != nil {
		return respondError(c, err)
	}
	note, err := h.admin.UpsertNote(c.UserContext(), id, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"note": note})
}

// Users

func (h *AdminHandler) UserProfile(c *fiber.Ctx) error {
	id, err := parseUUID(c.Query("uuid"), "uuid")
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.admin.GetUserProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := repository.ProfileFilter{
		Role:   c.Query("role"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		filter.Statuses = strings.Split(raw, ",")
	}
	users, total, err := h.admin.ListUsers(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": total})
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("uuid"), "uuid")
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.admin.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("uuid"), "uuid")
	if err != nil {
		return respondError(c, err)
	}
	var req services.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	profile, err := h.admin.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// DeleteUser reports completed_steps either way so a partial delete is
// visible to the caller.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("uuid"), "uuid")
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.admin.DeleteUser(c.UserContext(), id)
	if err != nil {
		if report == nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":           "Failed to delete user",
			"failed_step":     report.FailedStep,
			"completed_steps": report.CompletedSteps,
		})
	}
	return c.JSON(fiber.Map{
		"message":         "User deleted successfully",
		"completed_steps": report.CompletedSteps,
	})
}

// Workflows

func (h *AdminHandler) ListWorkflows(c *fiber.Ctx) error {
	defs, err := h.admin.ListWorkflows(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"workflows": defs})
}

func (h *AdminHandler) SaveWorkflow(c *fiber.Ctx) error {
	var def workflow.Definition
	if err := c.BodyParser(&def); err != nil {
		return badRequest(c, "Invalid request body")
	}
	def.Role = c.Params("role")
	if err := h.admin.SaveWorkflow(c.UserContext(), def); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"workflow": def})
}

// Analytics

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	m, err := h.analytics.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(m)
}

func (h *AdminHandler) RecentActivity(c *fiber.Ctx) error {
	entries, err := h.analytics.RecentActivity(c.UserContext(), c.QueryInt("limit", services.DefaultActivityLimit))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"activity": entries})
}

func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	filter := repository.EventFilter{
		EventType: c.Query("event_type"),
		Limit:     c.QueryInt("limit", services.DefaultEventLimit),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		filter.UserID = &id
	}
	var err error
	if filter.Start, err = parseDate(c.Query("start_date"), false); err != nil {
		return badRequest(c, "invalid start_date")
	}
	if filter.End, err = parseDate(c.Query("end_date"), true); err != nil {
		return badRequest(c, "invalid end_date")
	}
	events, err := h.analytics.Query(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}

func (h *AdminHandler) UserJourney(c *fiber.Ctx) error {
	journey, err := h.analytics.UserJourney(c.UserContext(), strings.ToLower(strings.TrimSpace(c.Query("email"))))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(journey)
}

// parseDate accepts RFC 3339 or a bare date. Empty input yields nil. A bare
// date used as an end bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, invalid("invalid date " + raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
