package models

import (
	"time"

	"gorm.io/datatypes"
)

// Stage is the metadata record for one onboarding stage.
type Stage struct {
	ID                   int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Role                 string    `gorm:"size:20;not null;index" json:"role"`
	Name                 string    `gorm:"size:255;not null" json:"name"`
	OnboardingStageIndex int       `gorm:"not null;default:0" json:"onboarding_stage_index"`
	FlowName             string    `gorm:"size:100" json:"flow_name,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Stage) TableName() string {
	return "onboarding_stages"
}

// Workflow stores one role's stage graph as a jsonb array of nodes.
type Workflow struct {
	Role      string         `gorm:"size:20;primaryKey" json:"role"`
	Nodes     datatypes.JSON `gorm:"type:jsonb;not null" json:"nodes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Workflow) TableName() string {
	return "workflows"
}

// Flow is a named section/question document.
type Flow struct {
	FlowName  string         `gorm:"size:100;primaryKey" json:"flow_name"`
	Sections  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"sections"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Flow) TableName() string {
	return "flows"
}
