package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StageStatusNotStarted = "not_started"
	StageStatusInProgress = "in_progress"
	StageStatusCompleted  = "completed"
)

// ValidStageStatus reports whether s is one of the tracked stage statuses.
func ValidStageStatus(s string) bool {
	switch s {
	case StageStatusNotStarted, StageStatusInProgress, StageStatusCompleted:
		return true
	}
	return false
}

// StageProgress is keyed by (uuid, stage_id); at most one row per pair.
type StageProgress struct {
	UUID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"uuid"`
	StageID       int            `gorm:"primaryKey;autoIncrement:false" json:"stage_id"`
	Status        string         `gorm:"size:20;not null;default:'not_started'" json:"status"`
	Data          datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	LastUpdatedAt time.Time      `gorm:"column:last_updated_at;not null" json:"last_updated_at"`
}

func (StageProgress) TableName() string {
	return "onboarding_progress"
}

// ProfileNote is the single admin annotation kept per profile.
type ProfileNote struct {
	ProfileUUID uuid.UUID `gorm:"type:uuid;primaryKey" json:"profile_uuid"`
	Note        string    `gorm:"type:text" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ProfileNote) TableName() string {
	return "profile_notes"
}

// AnalyticsEvent is append-only.
type AnalyticsEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	EventType string         `gorm:"size:100;not null;index" json:"event_type"`
	EventData datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"event_data"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}
