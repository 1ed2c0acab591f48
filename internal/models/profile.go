package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
	RoleAlly   = "ally"
	RoleAdmin  = "admin"
)

const (
	ProfileStatusNotStarted = "not_started"
	ProfileStatusInReview   = "in_review"
	ProfileStatusBoarding   = "boarding"
)

// Profile is the application-owned user record keyed by the identity uuid.
type Profile struct {
	UUID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"uuid"`
	Email     string         `gorm:"size:255;index" json:"email"`
	Role      string         `gorm:"size:20;index" json:"role"`
	Status    string         `gorm:"size:30;not null;default:'not_started';index" json:"status"`
	Data      datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsSelfServiceRole reports whether a role may be chosen at signup.
func IsSelfServiceRole(role string) bool {
	switch role {
	case RoleSeller, RoleBuyer, RoleAlly:
		return true
	}
	return false
}
