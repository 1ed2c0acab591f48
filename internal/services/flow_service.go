package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"gorm.io/datatypes"
)

var flowNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,99}$`)

type FlowService struct {
	flows repository.FlowRepository
}

func NewFlowService(flows repository.FlowRepository) *FlowService {
	return &FlowService{flows: flows}
}

func (s *FlowService) List(ctx context.Context) ([]string, error) {
	names, err := s.flows.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list flows: %v", ErrUpstream, err)
	}
	return names, nil
}

func (s *FlowService) Get(ctx context.Context, name string) ([]flow.Section, error) {
	stored, err := s.flows.Get(ctx, name)
	if err != nil {
		return nil, notFoundOr(err, "flow "+name)
	}
	sections, err := flow.Decode(stored.Sections)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", name, err)
	}
	return sections, nil
}

// Create stores a new flow, seeded from the named template when one is given.
func (s *FlowService) Create(ctx context.Context, name, template string) ([]flow.Section, error) {
	if !flowNamePattern.MatchString(name) {
		return nil, validation("flow name must be lowercase letters, digits, '_' or '-'")
	}
	sections := []flow.Section{}
	if template != "" {
		var ok bool
		if sections, ok = flow.Template(template); !ok {
			return nil, validation("unknown template %q", template)
		}
	}
	raw, err := flow.Encode(sections)
	if err != nil {
		return nil, err
	}
	if err := s.flows.Create(ctx, &models.Flow{FlowName: name, Sections: datatypes.JSON(raw)}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: flow %s already exists", ErrConflict, name)
		}
		return nil, fmt.Errorf("%w: create flow: %v", ErrUpstream, err)
	}
	return sections, nil
}

func (s *FlowService) Delete(ctx context.Context, name string) error {
	if err := s.flows.Delete(ctx, name); err != nil {
		return notFoundOr(err, "flow "+name)
	}
	return nil
}

// SaveSections replaces the flow's sections after validating them.
func (s *FlowService) SaveSections(ctx context.Context, name string, sections []flow.Section) error {
	if _, err := s.flows.Get(ctx, name); err != nil {
		return notFoundOr(err, "flow "+name)
	}
	if err := flow.Validate(sections); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.save(ctx, name, sections)
}

// Reorder rewrites one section's question order; questionIDs must list every
// question of the section exactly once.
func (s *FlowService) Reorder(ctx context.Context, name, sectionID string, questionIDs []string) ([]flow.Section, error) {
	sections, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := flow.Reorder(sections, sectionID, questionIDs); err != nil {
		if errors.Is(err, flow.ErrUnknownSection) {
			return nil, fmt.Errorf("%w: %v", repository.ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.save(ctx, name, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *FlowService) save(ctx context.Context, name string, sections []flow.Section) error {
	raw, err := flow.Encode(sections)
	if err != nil {
		return err
	}
	if err := s.flows.Save(ctx, &models.Flow{FlowName: name, Sections: datatypes.JSON(raw)}); err != nil {
		return fmt.Errorf("%w: save flow: %v", ErrUpstream, err)
	}
	return nil
}
