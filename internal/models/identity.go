package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the auth-provider record: credentials only. Everything the
// application knows about the person lives on Profile.
type Identity struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Identity) TableName() string {
	return "auth_identities"
}
