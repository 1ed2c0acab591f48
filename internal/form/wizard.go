package form

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

// WizardState is the serializable position of a multi-section form.
type WizardState struct {
	Section int                    `json:"section"`
	Answers map[string]interface{} `json:"answers"`
}

// Wizard steps through the sections of a flow, one section per page.
type Wizard struct {
	sections []flow.Section
	state    WizardState
}

func NewWizard(sections []flow.Section, state WizardState) *Wizard {
	if state.Answers == nil {
		state.Answers = map[string]interface{}{}
	}
	if state.Section < 0 || state.Section >= len(sections) {
		state.Section = 0
	}
	return &Wizard{sections: sections, state: state}
}

func (w *Wizard) State() WizardState { return w.state }

func (w *Wizard) Section() (flow.Section, bool) {
	if len(w.sections) == 0 {
		return flow.Section{}, false
	}
	return w.sections[w.state.Section], true
}

// Fields renders the current section with each change written back to the
// wizard's answers.
func (w *Wizard) Fields() []Field {
	s, ok := w.Section()
	if !ok {
		return nil
	}
	fields := make([]Field, 0, len(s.Questions))
	for _, q := range s.Questions {
		id := q.Meta().ID
		fields = append(fields, Render(q, w.state.Answers[id], func(v interface{}) {
			w.state.Answers[id] = v
		}))
	}
	return fields
}

// Next moves forward once the current section validates.
func (w *Wizard) Next() error {
	s, ok := w.Section()
	if !ok {
		return nil
	}
	if err := ValidateAnswers([]flow.Section{s}, w.state.Answers); err != nil {
		return err
	}
	if w.state.Section < len(w.sections)-1 {
		w.state.Section++
	}
	return nil
}

func (w *Wizard) Back() {
	if w.state.Section > 0 {
		w.state.Section--
	}
}

func (w *Wizard) Done() bool {
	return len(w.sections) == 0 || w.state.Section == len(w.sections)-1
}
