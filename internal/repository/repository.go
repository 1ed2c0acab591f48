// Package repository defines the table-level contracts the services are
// written against. Every implementation reports a missing row as ErrNotFound
// so callers can tell "absent" apart from a failed call.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	// Delete removes the identity and its refresh tokens. Deleting an absent
	// identity is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, hash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ProfileFilter struct {
	Role     string
	Statuses []string
	// ExcludeRole drops one role from the result (used to hide admins).
	ExcludeRole string
	Limit       int
	Offset      int
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Profile, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProfileFilter) ([]models.Profile, int64, error)
	// CountBy groups profiles by a column ("role" or "status").
	CountBy(ctx context.Context, column string) (map[string]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type StageRepository interface {
	List(ctx context.Context) ([]models.Stage, error)
	Get(ctx context.Context, id int) (*models.Stage, error)
	GetByIDs(ctx context.Context, ids []int) ([]models.Stage, error)
	Create(ctx context.Context, stage *models.Stage) error
	Save(ctx context.Context, stage *models.Stage) error
}

type WorkflowRepository interface {
	Get(ctx context.Context, role string) (*models.Workflow, error)
	List(ctx context.Context) ([]models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

type FlowRepository interface {
	ListNames(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*models.Flow, error)
	// Create fails with ErrDuplicate when the name is taken.
	Create(ctx context.Context, flow *models.Flow) error
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, name string) error
}

type ProgressRepository interface {
	// ListByUser returns rows ordered by created_at descending.
	ListByUser(ctx context.Context, id uuid.UUID) ([]models.StageProgress, error)
	Get(ctx context.Context, id uuid.UUID, stageID int) (*models.StageProgress, error)
	Create(ctx context.Context, progress *models.StageProgress) error
	// Update modifies an existing row only; ErrNotFound when the pair is absent.
	Update(ctx context.Context, id uuid.UUID, stageID int, fields map[string]interface{}) (*models.StageProgress, error)
	// UpsertStatus inserts the row or overwrites status and last_updated_at.
	UpsertStatus(ctx context.Context, progress *models.StageProgress) (*models.StageProgress, error)
	ListRecent(ctx context.Context, limit int) ([]models.StageProgress, error)
	// Previous returns the user's row created immediately before the given time.
	Previous(ctx context.Context, id uuid.UUID, before time.Time) (*models.StageProgress, error)
	DeleteByUser(ctx context.Context, id uuid.UUID) error
	CountUpdatedSince(ctx context.Context, since time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type NoteRepository interface {
	Get(ctx context.Context, profileID uuid.UUID) (*models.ProfileNote, error)
	Create(ctx context.Context, note *models.ProfileNote) error
	Update(ctx context.Context, profileID uuid.UUID, text string) (*models.ProfileNote, error)
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) error
}

type EventFilter struct {
	EventType string
	UserID    *uuid.UUID
	Start     *time.Time
	End       *time.Time
	// Ascending orders oldest first; the default is newest first.
	Ascending bool
	Limit     int
}

type EventRepository interface {
	CreateBatch(ctx context.Context, events []models.AnalyticsEvent) error
	Query(ctx context.Context, filter EventFilter) ([]models.AnalyticsEvent, error)
	DeleteByUser(ctx context.Context, id uuid.UUID) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// Store bundles every repository the application uses.
type Store struct {
	Identities    IdentityRepository
	RefreshTokens RefreshTokenRepository
	Profiles      ProfileRepository
	Stages        StageRepository
	Workflows     WorkflowRepository
	Flows         FlowRepository
	Progress      ProgressRepository
	Notes         NoteRepository
	Events        EventRepository
}
