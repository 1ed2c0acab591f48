package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const EventUserDeleted = "user_deleted"

// Cascade delete steps, in execution order.
const (
	StepAnalyticsEvents    = "analytics_events"
	StepOnboardingProgress = "onboarding_progress"
	StepProfileNotes       = "profile_notes"
	StepProfile            = "profile"
	StepAuthIdentity       = "auth_identity"
)

type UserAggregate struct {
	Profile      *models.Profile        `json:"profile"`
	CurrentStage *CurrentStage          `json:"current_stage"`
	Progress     []models.StageProgress `json:"progress"`
	Note         *models.ProfileNote    `json:"note"`
}

// UserUpdate carries the raw profile fields an admin may overwrite. Nil
// fields are left untouched.
type UserUpdate struct {
	Email  *string         `json:"email"`
	Role   *string         `json:"role"`
	Status *string         `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// DeleteReport says how far a cascade delete got.
type DeleteReport struct {
	CompletedSteps []string `json:"completed_steps"`
	FailedStep     string   `json:"failed_step,omitempty"`
}

// StepError is returned when a cascade step fails. Earlier steps stay applied.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return "delete " + e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

type AdminService struct {
	store     *repository.Store
	progress  *ProgressService
	workflows *workflow.Store
	events    EventSink
}

func NewAdminService(store *repository.Store, progress *ProgressService, workflows *workflow.Store, events EventSink) *AdminService {
	return &AdminService{store: store, progress: progress, workflows: workflows, events: events}
}

func (s *AdminService) ListUsers(ctx context.Context, filter repository.ProfileFilter) ([]models.Profile, int64, error) {
	profiles, total, err := s.store.Profiles.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list profiles: %v", ErrUpstream, err)
	}
	return profiles, total, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*UserAggregate, error) {
	profile, err := s.store.Profiles.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return s.aggregate(ctx, profile)
}

// GetUserProfile is GetUser with the email re-read from the auth identity.
// A drifted profile email is written back.
func (s *AdminService) GetUserProfile(ctx context.Context, id uuid.UUID) (*UserAggregate, error) {
	profile, err := s.store.Profiles.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	identity, err := s.store.Identities.GetByID(ctx, id)
	switch {
	case err == nil:
		if identity.Email != profile.Email {
			profile.Email = identity.Email
			if _, err := s.store.Profiles.Update(ctx, id, map[string]interface{}{"email": identity.Email}); err != nil {
				slog.Warn("failed to sync profile email", "uuid", id, "error", err)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("%w: load identity: %v", ErrUpstream, err)
	}
	return s.aggregate(ctx, profile)
}

func (s *AdminService) aggregate(ctx context.Context, profile *models.Profile) (*UserAggregate, error) {
	progress, err := s.progress.GetProgress(ctx, profile.UUID)
	if err != nil {
		return nil, err
	}
	current, err := s.progress.GetCurrentStage(ctx, profile.UUID)
	if err != nil {
		return nil, err
	}
	note, err := s.GetNote(ctx, profile.UUID)
	if err != nil {
		return nil, err
	}
	return &UserAggregate{Profile: profile, CurrentStage: current, Progress: progress, Note: note}, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id uuid.UUID, req UserUpdate) (*models.Profile, error) {
	fields := map[string]interface{}{}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return nil, validation("email cannot be empty")
		}
		fields["email"] = email
	}
	if req.Role != nil {
		if !models.IsSelfServiceRole(*req.Role) && *req.Role != models.RoleAdmin {
			return nil, validation("unknown role %q", *req.Role)
		}
		fields["role"] = *req.Role
	}
	if req.Status != nil {
		if strings.TrimSpace(*req.Status) == "" {
			return nil, validation("status cannot be empty")
		}
		fields["status"] = *req.Status
	}
	if len(req.Data) > 0 && string(req.Data) != "null" {
		var doc map[string]interface{}
		if err := json.Unmarshal(req.Data, &doc); err != nil {
			return nil, validation("data must be a JSON object")
		}
		fields["data"] = datatypes.JSON(req.Data)
	}
	if len(fields) == 0 {
		return nil, validation("no fields to update")
	}
	profile, err := s.store.Profiles.Update(ctx, id, fields)
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return profile, nil
}

// DeleteUser removes everything the application holds about a user in a fixed
// order and stops at the first failing step. Each step deletes only what still
// exists, so a failed run can be retried as is.
func (s *AdminService) DeleteUser(ctx context.Context, id uuid.UUID) (*DeleteReport, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		run  func(context.Context, uuid.UUID) error
	}{
		{StepAnalyticsEvents, s.store.Events.DeleteByUser},
		{StepOnboardingProgress, s.store.Progress.DeleteByUser},
		{StepProfileNotes, s.store.Notes.DeleteByProfile},
		{StepProfile, s.store.Profiles.Delete},
		{StepAuthIdentity, s.store.Identities.Delete},
	}

	report := &DeleteReport{CompletedSteps: []string{}}
	for _, step := range steps {
		if err := step.run(ctx, id); err != nil {
			report.FailedStep = step.name
			metrics.CascadeDeletes.WithLabelValues("failed", step.name).Inc()
			slog.Error("user delete stopped", "uuid", id, "step", step.name, "completed", report.CompletedSteps, "error", err)
			return report, &StepError{Step: step.name, Err: err}
		}
		report.CompletedSteps = append(report.CompletedSteps, step.name)
	}
	metrics.CascadeDeletes.WithLabelValues("completed", "").Inc()
	slog.Info("user deleted", "uuid", id)
	if s.events != nil {
		s.events.Record(nil, EventUserDeleted, map[string]interface{}{"uuid": id.String()})
	}
	return report, nil
}

// ensureExists passes when either the profile or the identity is still there,
// so half-deleted users can be retried.
func (s *AdminService) ensureExists(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.Profiles.Get(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: load profile: %v", ErrUpstream, err)
	}
	_, err = s.store.Identities.GetByID(ctx, id)
	if err == nil {
		return nil
	}
	return notFoundOr(err, "user")
}

// GetNote returns nil when the profile has no note.
func (s *AdminService) GetNote(ctx context.Context, profileID uuid.UUID) (*models.ProfileNote, error) {
	note, err := s.store.Notes.Get(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load note: %v", ErrUpstream, err)
	}
	return note, nil
}

// UpsertNote updates the profile's note, inserting it when there is none.
func (s *AdminService) UpsertNote(ctx context.Context, profileID uuid.UUID, text string) (*models.ProfileNote, error) {
	note, err := s.store.Notes.Update(ctx, profileID, text)
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: update note: %v", ErrUpstream, err)
	}
	note = &models.ProfileNote{ProfileUUID: profileID, Note: text}
	if err := s.store.Notes.Create(ctx, note); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.UpsertNote(ctx, profileID, text)
		}
		return nil, fmt.Errorf("%w: create note: %v", ErrUpstream, err)
	}
	return note, nil
}

func (s *AdminService) ListStages(ctx context.Context) ([]models.Stage, error) {
	stages, err := s.store.Stages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list stages: %v", ErrUpstream, err)
	}
	workflow.SortByIndex(stages)
	return stages, nil
}

func (s *AdminService) NextStages(ctx context.Context, role string, current int) ([]models.Stage, error) {
	stages, err := s.workflows.NextStages(ctx, role, current)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: next stages: %v", ErrUpstream, err)
	}
	return stages, nil
}

func (s *AdminService) CreateStage(ctx context.Context, stage *models.Stage) error {
	if err := checkStage(stage); err != nil {
		return err
	}
	if err := s.store.Stages.Create(ctx, stage); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: stage %d exists", ErrConflict, stage.ID)
		}
		return fmt.Errorf("%w: create stage: %v", ErrUpstream, err)
	}
	return nil
}

// UpdateStage overwrites metadata of an existing stage.
func (s *AdminService) UpdateStage(ctx context.Context, stage *models.Stage) error {
	if err := checkStage(stage); err != nil {
		return err
	}
	existing, err := s.store.Stages.Get(ctx, stage.ID)
	if err != nil {
		return notFoundOr(err, "stage")
	}
	stage.CreatedAt = existing.CreatedAt
	if err := s.store.Stages.Save(ctx, stage); err != nil {
		return fmt.Errorf("%w: save stage: %v", ErrUpstream, err)
	}
	return nil
}

func checkStage(stage *models.Stage) error {
	if stage.ID <= 0 {
		return validation("stage id must be positive")
	}
	if strings.TrimSpace(stage.Name) == "" {
		return validation("stage name is required")
	}
	if !models.IsSelfServiceRole(stage.Role) {
		return validation("unknown role %q", stage.Role)
	}
	return nil
}

func (s *AdminService) ListWorkflows(ctx context.Context) ([]workflow.Definition, error) {
	defs, err := s.workflows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list workflows: %v", ErrUpstream, err)
	}
	return defs, nil
}

func (s *AdminService) SaveWorkflow(ctx context.Context, def workflow.Definition) error {
	if !models.IsSelfServiceRole(def.Role) {
		return validation("unknown role %q", def.Role)
	}
	if err := s.workflows.Save(ctx, def); err != nil {
		if errors.Is(err, workflow.ErrInvalidWorkflow) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return fmt.Errorf("%w: save workflow: %v", ErrUpstream, err)
	}
	return nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, what, err)
}
