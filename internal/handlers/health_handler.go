package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	storageMode string
}

func NewHealthHandler(storageMode string) *HealthHandler {
	return &HealthHandler{storageMode: storageMode}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.storageMode == config.StorageModeMemory {
		dbStatus = "disabled"
	} else if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Storage:   h.storageMode,
	})
}
