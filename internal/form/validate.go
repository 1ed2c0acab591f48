package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

var (
	ErrRequired     = errors.New("answer is required")
	ErrInvalidValue = errors.New("answer does not fit the question")
)

// Errors maps question id to the problem with its answer.
type Errors map[string]error

func (e Errors) Error() string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+e[id].Error())
	}
	return strings.Join(parts, "; ")
}

// Validate checks one answer against its question. A nil or empty answer
// is fine unless the question is required.
func Validate(q flow.Question, value interface{}) error {
	if isEmpty(value) {
		if q.Meta().Required {
			return ErrRequired
		}
		return nil
	}
	v := &validator{value: value}
	q.Accept(v)
	return v.err
}

// ValidateAnswers checks every question of a flow against answers keyed by
// question id. Answers for unknown ids are ignored.
func ValidateAnswers(sections []flow.Section, answers map[string]interface{}) error {
	errs := Errors{}
	for _, s := range sections {
		for _, q := range s.Questions {
			if err := Validate(q, answers[q.Meta().ID]); err != nil {
				errs[q.Meta().ID] = err
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

type validator struct {
	value interface{}
	err   error
}

func (v *validator) choice(options []string, allowOther bool, s string) error {
	regular, other := declared(options, allowOther)
	if contains(regular, s) || (other && s != "") {
		return nil
	}
	return fmt.Errorf("%w: %q is not an option", ErrInvalidValue, s)
}

func (v *validator) single(options []string, allowOther bool) {
	s, ok := v.value.(string)
	if !ok {
		v.err = fmt.Errorf("%w: expected a string", ErrInvalidValue)
		return
	}
	v.err = v.choice(options, allowOther, s)
}

func (v *validator) VisitSingleSelect(q *flow.SingleSelect) { v.single(q.Options, q.AllowOther) }
func (v *validator) VisitEmotiveScale(q *flow.EmotiveScale) { v.single(q.Options, false) }
func (v *validator) VisitSignalScale(q *flow.SignalScale)   { v.single(q.Options, false) }

func (v *validator) VisitMultiSelect(q *flow.MultiSelect) {
	var items []string
	switch vals := v.value.(type) {
	case []string:
		items = vals
	case []interface{}:
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				v.err = fmt.Errorf("%w: expected a list of strings", ErrInvalidValue)
				return
			}
			items = append(items, s)
		}
	default:
		v.err = fmt.Errorf("%w: expected a list", ErrInvalidValue)
		return
	}
	if q.MaxSelections > 0 && len(items) > q.MaxSelections {
		v.err = fmt.Errorf("%w: at most %d selections", ErrInvalidValue, q.MaxSelections)
		return
	}
	regular, other := declared(q.Options, q.AllowOther)
	free := 0
	for _, s := range items {
		if contains(regular, s) {
			continue
		}
		free++
		if !other {
			v.err = fmt.Errorf("%w: %q is not an option", ErrInvalidValue, s)
			return
		}
		if free > 1 {
			v.err = fmt.Errorf("%w: only one answer outside the listed options is allowed, %q is a second", ErrInvalidValue, s)
			return
		}
	}
}

func (v *validator) VisitSlidingScale(q *flow.SlidingScale) {
	n, ok := asNumber(v.value)
	if !ok {
		v.err = fmt.Errorf("%w: expected a number", ErrInvalidValue)
		return
	}
	if n < q.Min || n > q.Max {
		v.err = fmt.Errorf("%w: %v outside %v..%v", ErrInvalidValue, n, q.Min, q.Max)
	}
}

func (v *validator) VisitBooleanConditional(q *flow.BooleanConditional) {
	s, ok := v.value.(string)
	if !ok {
		v.err = fmt.Errorf("%w: expected a string", ErrInvalidValue)
		return
	}
	options := q.Options
	if len(options) == 0 {
		options = defaultConditionalOptions
	}
	selected, _ := SplitConditional(s)
	if !contains(options, selected) {
		v.err = fmt.Errorf("%w: %q is not an option", ErrInvalidValue, selected)
	}
}

func (v *validator) VisitText(q *flow.Text) {
	s, ok := v.value.(string)
	if !ok {
		v.err = fmt.Errorf("%w: expected a string", ErrInvalidValue)
		return
	}
	if q.MaxLength > 0 && len([]rune(s)) > q.MaxLength {
		v.err = fmt.Errorf("%w: longer than %d characters", ErrInvalidValue, q.MaxLength)
	}
}
