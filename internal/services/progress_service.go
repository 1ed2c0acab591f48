package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/form"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventStageStarted       = "stage_started"
	EventStageStatusChanged = "stage_status_changed"
	EventAnswersSaved       = "stage_answers_saved"
)

// CurrentStage is the user's most recently created progress row joined to
// its stage metadata.
type CurrentStage struct {
	StageID    int    `json:"stage_id"`
	StageName  string `json:"stage_name"`
	Status     string `json:"status"`
	StageIndex int    `json:"stage_index"`
	FlowName   string `json:"flow_name,omitempty"`
}

// ProgressService is the only writer of onboarding progress. Admin writes go
// through AdminSetStatus, which never creates rows; user writes go through
// SetStatus and RecordAnswer, which do.
type ProgressService struct {
	store     *repository.Store
	workflows *workflow.Store
	events    EventSink
	now       func() time.Time
}

func NewProgressService(store *repository.Store, workflows *workflow.Store, events EventSink) *ProgressService {
	return &ProgressService{store: store, workflows: workflows, events: events, now: time.Now}
}

// GetProgress lists a user's rows newest first; no rows is an empty list.
func (s *ProgressService) GetProgress(ctx context.Context, id uuid.UUID) ([]models.StageProgress, error) {
	rows, err := s.store.Progress.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", ErrUpstream, err)
	}
	return rows, nil
}

// GetCurrentStage returns nil when the user has not started onboarding.
func (s *ProgressService) GetCurrentStage(ctx context.Context, id uuid.UUID) (*CurrentStage, error) {
	rows, err := s.GetProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0]
	for _, row := range rows[1:] {
		if row.CreatedAt.After(latest.CreatedAt) {
			latest = row
		}
	}
	current := &CurrentStage{StageID: latest.StageID, Status: latest.Status}
	stage, err := s.store.Stages.Get(ctx, latest.StageID)
	switch {
	case err == nil:
		current.StageName = stage.Name
		current.StageIndex = stage.OnboardingStageIndex
		current.FlowName = stage.FlowName
	case errors.Is(err, repository.ErrNotFound):
		slog.Warn("progress row references unknown stage", "uuid", id, "stage_id", latest.StageID)
	default:
		return nil, fmt.Errorf("%w: load stage: %v", ErrUpstream, err)
	}
	return current, nil
}

// AdminSetStatus overrides the status of a row the user already has. A
// missing (uuid, stage_id) row is ErrNotFound; nothing is created.
func (s *ProgressService) AdminSetStatus(ctx context.Context, id uuid.UUID, stageID int, status string) (*models.StageProgress, error) {
	if !models.ValidStageStatus(status) {
		return nil, validation("unknown status %q", status)
	}
	row, err := s.store.Progress.Update(ctx, id, stageID, map[string]interface{}{
		"status":          status,
		"last_updated_at": s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no progress for stage %d", repository.ErrNotFound, stageID)
		}
		return nil, fmt.Errorf("%w: update progress: %v", ErrUpstream, err)
	}
	s.statusChanged(id, stageID, status, "admin")
	return row, nil
}

// SetStatus is the self-service status write. The row is created when absent.
// Completing a stage requires its flow's required questions to be answered.
func (s *ProgressService) SetStatus(ctx context.Context, id uuid.UUID, stageID int, status string) (*models.StageProgress, error) {
	if !models.ValidStageStatus(status) {
		return nil, validation("unknown status %q", status)
	}
	profile, stage, err := s.ownStage(ctx, id, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Progress.Get(ctx, id, stageID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: load progress: %v", ErrUpstream, err)
		}
		if err := s.checkReachable(ctx, profile, stageID); err != nil {
			return nil, err
		}
	}
	if status == models.StageStatusCompleted {
		if err := s.checkComplete(ctx, id, stage); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	row, err := s.store.Progress.UpsertStatus(ctx, &models.StageProgress{
		UUID:          id,
		StageID:       stageID,
		Status:        status,
		Data:          datatypes.JSON("{}"),
		CreatedAt:     now,
		LastUpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upsert progress: %v", ErrUpstream, err)
	}
	s.statusChanged(id, stageID, status, "self")

	if status == models.StageStatusCompleted {
		s.submitIfFinished(ctx, profile, stage)
	}
	return row, nil
}

// RecordAnswer merges patch into the stage's answers. Top-level keys replace
// existing ones and a null value deletes the key. Status is left alone,
// except that a row created here starts as in_progress.
func (s *ProgressService) RecordAnswer(ctx context.Context, id uuid.UUID, stageID int, patch map[string]json.RawMessage) (*models.StageProgress, error) {
	if len(patch) == 0 {
		return nil, validation("answers are required")
	}
	profile, _, err := s.ownStage(ctx, id, stageID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Progress.Get(ctx, id, stageID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: load progress: %v", ErrUpstream, err)
	}
	if existing == nil {
		if err := s.checkReachable(ctx, profile, stageID); err != nil {
			return nil, err
		}
	}

	var current datatypes.JSON
	if existing != nil {
		current = existing.Data
	}
	merged, err := MergeAnswers(current, patch)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		now := s.now().UTC()
		row := &models.StageProgress{
			UUID:          id,
			StageID:       stageID,
			Status:        models.StageStatusInProgress,
			Data:          merged,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
		if err := s.store.Progress.Create(ctx, row); err != nil {
			if !errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("%w: create progress: %v", ErrUpstream, err)
			}
			// Lost a race with another first write; merge onto theirs.
			return s.RecordAnswer(ctx, id, stageID, patch)
		}
		s.record(id, EventStageStarted, map[string]interface{}{"stage_id": stageID, "via": "answer"})
		return row, nil
	}

	row, err := s.store.Progress.Update(ctx, id, stageID, map[string]interface{}{"data": merged})
	if err != nil {
		return nil, fmt.Errorf("%w: update answers: %v", ErrUpstream, err)
	}
	s.record(id, EventAnswersSaved, map[string]interface{}{"stage_id": stageID, "keys": len(patch)})
	return row, nil
}

// MergeAnswers applies patch to the current answers document.
func MergeAnswers(current datatypes.JSON, patch map[string]json.RawMessage) (datatypes.JSON, error) {
	doc := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("decode stored answers: %w", err)
		}
		if doc == nil {
			doc = map[string]json.RawMessage{}
		}
	}
	for key, value := range patch {
		if len(value) == 0 || string(value) == "null" {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return datatypes.JSON(out), nil
}

// Start creates the first progress row of the user's workflow. Calling it
// again once onboarding has begun returns the current stage unchanged.
func (s *ProgressService) Start(ctx context.Context, id uuid.UUID) (*CurrentStage, error) {
	current, err := s.GetCurrentStage(ctx, id)
	if err != nil || current != nil {
		return current, err
	}
	profile, err := s.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, err := s.workflows.EntryStage(ctx, profile.Role)
	if err != nil {
		return nil, s.workflowErr(err)
	}
	if err := s.createRow(ctx, id, entry.ID); err != nil {
		return nil, err
	}
	return s.GetCurrentStage(ctx, id)
}

// NextStages lists where the user may go from their current stage.
func (s *ProgressService) NextStages(ctx context.Context, id uuid.UUID) ([]models.Stage, error) {
	current, err := s.GetCurrentStage(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, validation("onboarding has not started")
	}
	profile, err := s.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	stages, err := s.workflows.NextStages(ctx, profile.Role, current.StageID)
	if err != nil {
		return nil, s.workflowErr(err)
	}
	return stages, nil
}

// Advance completes the current stage and opens next, which must be one hop
// away in the user's workflow.
func (s *ProgressService) Advance(ctx context.Context, id uuid.UUID, next int) (*CurrentStage, error) {
	current, err := s.GetCurrentStage(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, validation("onboarding has not started")
	}
	profile, err := s.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.workflows.Contains(ctx, profile.Role, current.StageID, next)
	if err != nil {
		return nil, s.workflowErr(err)
	}
	if !ok {
		return nil, validation("stage %d is not reachable from stage %d", next, current.StageID)
	}
	if current.Status != models.StageStatusCompleted {
		if _, err := s.SetStatus(ctx, id, current.StageID, models.StageStatusCompleted); err != nil {
			return nil, err
		}
	}
	if err := s.createRow(ctx, id, next); err != nil {
		return nil, err
	}
	return s.GetCurrentStage(ctx, id)
}

func (s *ProgressService) createRow(ctx context.Context, id uuid.UUID, stageID int) error {
	now := s.now().UTC()
	err := s.store.Progress.Create(ctx, &models.StageProgress{
		UUID:          id,
		StageID:       stageID,
		Status:        models.StageStatusNotStarted,
		Data:          datatypes.JSON("{}"),
		CreatedAt:     now,
		LastUpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: stage %d already reached", ErrConflict, stageID)
		}
		return fmt.Errorf("%w: create progress: %v", ErrUpstream, err)
	}
	s.record(id, EventStageStarted, map[string]interface{}{"stage_id": stageID})
	return nil
}

func (s *ProgressService) profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.store.Profiles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: load profile: %v", ErrUpstream, err)
	}
	return profile, nil
}

// ownStage loads the stage and checks it belongs to the caller's role.
func (s *ProgressService) ownStage(ctx context.Context, id uuid.UUID, stageID int) (*models.Profile, *models.Stage, error) {
	profile, err := s.profile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stage, err := s.store.Stages.Get(ctx, stageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: stage %d", repository.ErrNotFound, stageID)
		}
		return nil, nil, fmt.Errorf("%w: load stage: %v", ErrUpstream, err)
	}
	if stage.Role != profile.Role {
		return nil, nil, fmt.Errorf("%w: stage %d belongs to the %s workflow", ErrForbidden, stageID, stage.Role)
	}
	return profile, stage, nil
}

// checkReachable allows a self-service write to open a new row only for the
// workflow's entry stage or a stage one hop from a stage already reached.
func (s *ProgressService) checkReachable(ctx context.Context, profile *models.Profile, stageID int) error {
	entry, err := s.workflows.EntryStage(ctx, profile.Role)
	if err != nil {
		return s.workflowErr(err)
	}
	if entry.ID == stageID {
		return nil
	}
	rows, err := s.store.Progress.ListByUser(ctx, profile.UUID)
	if err != nil {
		return fmt.Errorf("%w: load progress: %v", ErrUpstream, err)
	}
	for _, row := range rows {
		ok, err := s.workflows.Contains(ctx, profile.Role, row.StageID, stageID)
		if err != nil {
			if errors.Is(err, workflow.ErrStageNotInWorkflow) {
				continue
			}
			return s.workflowErr(err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: stage %d is not reachable from the stages already reached", ErrForbidden, stageID)
}

func (s *ProgressService) checkComplete(ctx context.Context, id uuid.UUID, stage *models.Stage) error {
	if stage.FlowName == "" {
		return nil
	}
	stored, err := s.store.Flows.Get(ctx, stage.FlowName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: load flow: %v", ErrUpstream, err)
	}
	sections, err := flow.Decode(stored.Sections)
	if err != nil {
		return fmt.Errorf("flow %s: %w", stage.FlowName, err)
	}

	answers := map[string]interface{}{}
	row, err := s.store.Progress.Get(ctx, id, stage.ID)
	switch {
	case err == nil:
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &answers); err != nil {
				return fmt.Errorf("decode stored answers: %w", err)
			}
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: load progress: %v", ErrUpstream, err)
	}

	if err := form.ValidateAnswers(sections, answers); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// submitIfFinished moves a not-yet-reviewed profile to in_review once a
// terminal stage is completed.
func (s *ProgressService) submitIfFinished(ctx context.Context, profile *models.Profile, stage *models.Stage) {
	if profile.Status != models.ProfileStatusNotStarted {
		return
	}
	next, err := s.workflows.NextStages(ctx, profile.Role, stage.ID)
	if err != nil || len(next) > 0 {
		return
	}
	if _, err := s.store.Profiles.Update(ctx, profile.UUID, map[string]interface{}{
		"status": models.ProfileStatusInReview,
	}); err != nil {
		slog.Error("failed to submit profile for review", "uuid", profile.UUID, "error", err)
	}
}

func (s *ProgressService) workflowErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: workflow: %v", ErrUpstream, err)
}

func (s *ProgressService) statusChanged(id uuid.UUID, stageID int, status, source string) {
	metrics.StageTransitions.WithLabelValues(source, status).Inc()
	s.record(id, EventStageStatusChanged, map[string]interface{}{
		"stage_id": stageID,
		"status":   status,
		"source":   source,
	})
}

func (s *ProgressService) record(id uuid.UUID, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	uid := id
	s.events.Record(&uid, eventType, data)
}
