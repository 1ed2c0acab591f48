package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/form"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/google/uuid"
)

type SectionSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StageForm is one section of a stage's flow rendered with saved answers.
type StageForm struct {
	Stage    models.Stage     `json:"stage"`
	Status   string           `json:"status"`
	Sections []SectionSummary `json:"sections"`
	Section  *SectionSummary  `json:"section"`
	Controls []form.Control   `json:"controls"`
	Wizard   form.WizardState `json:"wizard"`
	Done     bool             `json:"done"`
}

// StageForm renders sectionID of the stage's flow, or the first section when
// sectionID is empty.
func (s *ProgressService) StageForm(ctx context.Context, id uuid.UUID, stageID int, sectionID string) (*StageForm, error) {
	_, stage, err := s.ownStage(ctx, id, stageID)
	if err != nil {
		return nil, err
	}
	out := &StageForm{
		Stage:    *stage,
		Status:   models.StageStatusNotStarted,
		Sections: []SectionSummary{},
		Controls: []form.Control{},
	}

	sections := []flow.Section{}
	if stage.FlowName != "" {
		stored, err := s.store.Flows.Get(ctx, stage.FlowName)
		switch {
		case err == nil:
			if sections, err = flow.Decode(stored.Sections); err != nil {
				return nil, fmt.Errorf("flow %s: %w", stage.FlowName, err)
			}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: load flow: %v", ErrUpstream, err)
		}
	}

	answers := map[string]interface{}{}
	row, err := s.store.Progress.Get(ctx, id, stageID)
	switch {
	case err == nil:
		out.Status = row.Status
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &answers); err != nil {
				return nil, fmt.Errorf("decode stored answers: %w", err)
			}
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: load progress: %v", ErrUpstream, err)
	}

	index := 0
	for i, sec := range sections {
		out.Sections = append(out.Sections, SectionSummary{ID: sec.ID, Title: sec.Title})
		if sec.ID == sectionID {
			index = i
		}
	}
	if sectionID != "" && (len(sections) == 0 || sections[index].ID != sectionID) {
		return nil, fmt.Errorf("%w: section %s", repository.ErrNotFound, sectionID)
	}

	wizard := form.NewWizard(sections, form.WizardState{Section: index, Answers: answers})
	if current, ok := wizard.Section(); ok {
		out.Section = &SectionSummary{ID: current.ID, Title: current.Title}
		for _, field := range wizard.Fields() {
			out.Controls = append(out.Controls, field.View())
		}
	}
	out.Wizard = wizard.State()
	out.Done = wizard.Done()
	return out, nil
}
