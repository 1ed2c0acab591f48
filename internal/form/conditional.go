package form

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

const yesPrefix = YesOption + ", "

var defaultConditionalOptions = []string{YesOption, "No"}

// ConditionalField reports "Yes, <follow-up>" while Yes is selected and
// the follow-up has text, plain "Yes" when it is empty, and any other option
// verbatim.
type ConditionalField struct {
	q        *flow.BooleanConditional
	options  []string
	selected string
	followUp string
	onChange func(interface{})
}

func newConditionalField(q *flow.BooleanConditional, current string, onChange func(interface{})) *ConditionalField {
	options := q.Options
	if len(options) == 0 {
		options = defaultConditionalOptions
	}
	f := &ConditionalField{q: q, options: options, onChange: onChange}
	f.selected, f.followUp = SplitConditional(current)
	if f.selected != "" && !contains(options, f.selected) {
		f.selected, f.followUp = "", ""
	}
	return f
}

// SplitConditional undoes the combined encoding.
func SplitConditional(value string) (selected, followUp string) {
	if strings.HasPrefix(value, yesPrefix) {
		return YesOption, strings.TrimPrefix(value, yesPrefix)
	}
	return value, ""
}

// JoinConditional is the inverse of SplitConditional.
func JoinConditional(selected, followUp string) string {
	if selected == YesOption && followUp != "" {
		return yesPrefix + followUp
	}
	return selected
}

func (f *ConditionalField) Selected() string { return f.selected }

func (f *ConditionalField) FollowUpText() string { return f.followUp }

// Choose selects an option. Anything but Yes clears the follow-up.
func (f *ConditionalField) Choose(option string) {
	if !contains(f.options, option) {
		return
	}
	if option != f.selected || option != YesOption {
		f.followUp = ""
	}
	f.selected = option
	f.onChange(f.Value())
}

// TypeFollowUp sets the follow-up text; ignored unless Yes is selected.
func (f *ConditionalField) TypeFollowUp(text string) {
	if f.selected != YesOption {
		return
	}
	f.followUp = text
	f.onChange(f.Value())
}

func (f *ConditionalField) Value() interface{} {
	return JoinConditional(f.selected, f.followUp)
}

func (f *ConditionalField) View() Control {
	c := baseControl(f.q.Base, f.q.Type())
	for _, o := range f.options {
		c.Options = append(c.Options, Option{Label: o, Selected: o == f.selected})
	}
	c.FollowUp = &FollowUp{
		Prompt:  f.q.FollowUp,
		Visible: f.selected == YesOption,
		Text:    f.followUp,
	}
	c.Value = f.Value()
	return c
}
