package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"gorm.io/datatypes"
)

// Store reads graphs from the workflow table and stage metadata from the
// stage table. Nothing is cached between calls.
type Store struct {
	workflows repository.WorkflowRepository
	stages    repository.StageRepository
}

func NewStore(workflows repository.WorkflowRepository, stages repository.StageRepository) *Store {
	return &Store{workflows: workflows, stages: stages}
}

func decode(wf *models.Workflow) (*Definition, error) {
	def := &Definition{Role: wf.Role}
	if len(wf.Nodes) > 0 {
		if err := json.Unmarshal(wf.Nodes, &def.Nodes); err != nil {
			return nil, fmt.Errorf("decode workflow %s: %w", wf.Role, err)
		}
	}
	return def, nil
}

// Definition loads a role's graph.
func (s *Store) Definition(ctx context.Context, role string) (*Definition, error) {
	wf, err := s.workflows.Get(ctx, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoWorkflow
		}
		return nil, err
	}
	return decode(wf)
}

// List loads every stored graph.
func (s *Store) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.workflows.List(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(rows))
	for i := range rows {
		def, err := decode(&rows[i])
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

// Save validates and stores a role's graph, replacing any previous one.
func (s *Store) Save(ctx context.Context, def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	nodes, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("encode workflow %s: %w", def.Role, err)
	}
	return s.workflows.Save(ctx, &models.Workflow{Role: def.Role, Nodes: datatypes.JSON(nodes)})
}

// NextStages returns the stages one hop from currentStageID, ordered by
// onboarding_stage_index. The order of the node's next list is ignored. A
// terminal stage yields an empty slice.
func (s *Store) NextStages(ctx context.Context, role string, currentStageID int) ([]models.Stage, error) {
	def, err := s.Definition(ctx, role)
	if err != nil {
		return nil, err
	}
	node, ok := def.Node(currentStageID)
	if !ok {
		return nil, ErrStageNotInWorkflow
	}
	if len(node.Next) == 0 {
		return []models.Stage{}, nil
	}
	stages, err := s.stages.GetByIDs(ctx, node.Next)
	if err != nil {
		return nil, err
	}
	SortByIndex(stages)
	return stages, nil
}

// EntryStage picks where a new user starts: the lowest-index stage that no
// edge points at, falling back to the lowest-index stage overall.
func (s *Store) EntryStage(ctx context.Context, role string) (*models.Stage, error) {
	def, err := s.Definition(ctx, role)
	if err != nil {
		return nil, err
	}
	candidates := def.Entries()
	if len(candidates) == 0 {
		candidates = def.StageIDs()
	}
	stages, err := s.stages.GetByIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, ErrStageNotInWorkflow
	}
	SortByIndex(stages)
	return &stages[0], nil
}

// Contains reports whether next is one hop from current in role's graph.
func (s *Store) Contains(ctx context.Context, role string, current, next int) (bool, error) {
	def, err := s.Definition(ctx, role)
	if err != nil {
		return false, err
	}
	node, ok := def.Node(current)
	if !ok {
		return false, ErrStageNotInWorkflow
	}
	for _, id := range node.Next {
		if id == next {
			return true, nil
		}
	}
	return false, nil
}

// SortByIndex orders stages by onboarding_stage_index, then id.
func SortByIndex(stages []models.Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].OnboardingStageIndex != stages[j].OnboardingStageIndex {
			return stages[i].OnboardingStageIndex < stages[j].OnboardingStageIndex
		}
		return stages[i].ID < stages[j].ID
	})
}
