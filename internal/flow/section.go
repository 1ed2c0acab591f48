package flow

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidSchema  = errors.New("invalid flow schema")
	ErrUnknownSection = errors.New("section not found")
	ErrBadReorder     = errors.New("reorder must list every question of the section exactly once")
)

type Section struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Questions   QuestionList `json:"questions"`
}

// Decode parses a stored sections document. An empty document has no sections.
func Decode(data []byte) ([]Section, error) {
	if len(data) == 0 {
		return []Section{}, nil
	}
	sections := []Section{}
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return sections, nil
}

func Encode(sections []Section) ([]byte, error) {
	if sections == nil {
		sections = []Section{}
	}
	return json.Marshal(sections)
}

// Validate checks section and question ids and the per-type constraints.
// Question ids are unique across the whole flow because answers are keyed by
// them.
func Validate(sections []Section) error {
	sectionIDs := make(map[string]bool, len(sections))
	questionIDs := make(map[string]bool)
	for _, s := range sections {
		if s.ID == "" {
			return fmt.Errorf("%w: section without id", ErrInvalidSchema)
		}
		if sectionIDs[s.ID] {
			return fmt.Errorf("%w: duplicate section %q", ErrInvalidSchema, s.ID)
		}
		sectionIDs[s.ID] = true
		for _, q := range s.Questions {
			base := q.Meta()
			if base.ID == "" {
				return fmt.Errorf("%w: question without id in section %q", ErrInvalidSchema, s.ID)
			}
			if questionIDs[base.ID] {
				return fmt.Errorf("%w: duplicate question %q", ErrInvalidSchema, base.ID)
			}
			questionIDs[base.ID] = true
			if err := checkQuestion(q); err != nil {
				return fmt.Errorf("%w: question %q: %v", ErrInvalidSchema, base.ID, err)
			}
		}
	}
	return nil
}

type schemaChecker struct{ err error }

func checkQuestion(q Question) error {
	c := &schemaChecker{}
	q.Accept(c)
	return c.err
}

func needOptions(options []string) error {
	if len(options) == 0 {
		return errors.New("options are required")
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if o == "" {
			return errors.New("empty option")
		}
		if seen[o] {
			return fmt.Errorf("duplicate option %q", o)
		}
		seen[o] = true
	}
	return nil
}

func (c *schemaChecker) VisitSingleSelect(q *SingleSelect) { c.err = needOptions(q.Options) }

func (c *schemaChecker) VisitMultiSelect(q *MultiSelect) {
	c.err = needOptions(q.Options)
	if c.err == nil && q.MaxSelections < 0 {
		c.err = errors.New("max_selections cannot be negative")
	}
}

func (c *schemaChecker) VisitEmotiveScale(q *EmotiveScale) { c.err = needOptions(q.Options) }
func (c *schemaChecker) VisitSignalScale(q *SignalScale)   { c.err = needOptions(q.Options) }

func (c *schemaChecker) VisitSlidingScale(q *SlidingScale) {
	switch {
	case q.Min >= q.Max:
		c.err = errors.New("min must be below max")
	case q.Step <= 0:
		c.err = errors.New("step must be positive")
	}
}

func (c *schemaChecker) VisitBooleanConditional(q *BooleanConditional) {
	if len(q.Options) == 0 {
		return
	}
	c.err = needOptions(q.Options)
}

func (c *schemaChecker) VisitText(q *Text) {
	if q.MaxLength < 0 {
		c.err = errors.New("max_length cannot be negative")
	}
}

// Find returns the question with the given id.
func Find(sections []Section, questionID string) (Question, bool) {
	for _, s := range sections {
		for _, q := range s.Questions {
			if q.Meta().ID == questionID {
				return q, true
			}
		}
	}
	return nil, false
}

// Reorder rearranges one section's questions. questionIDs must be a
// permutation of the section's current ids; nothing else changes order.
func Reorder(sections []Section, sectionID string, questionIDs []string) error {
	for i := range sections {
		if sections[i].ID != sectionID {
			continue
		}
		current := sections[i].Questions
		if len(questionIDs) != len(current) {
			return ErrBadReorder
		}
		byID := make(map[string]Question, len(current))
		for _, q := range current {
			byID[q.Meta().ID] = q
		}
		reordered := make(QuestionList, 0, len(current))
		for _, id := range questionIDs {
			q, ok := byID[id]
			if !ok {
				return ErrBadReorder
			}
			delete(byID, id)
			reordered = append(reordered, q)
		}
		sections[i].Questions = reordered
		return nil
	}
	return ErrUnknownSection
}
