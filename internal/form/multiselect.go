package form

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

type MultiSelectField struct {
	q             *flow.MultiSelect
	options       []string
	allowOther    bool
	selected      map[string]bool
	otherSelected bool
	otherText     string
	// extra holds saved values that fit neither a declared option nor the
	// single "Other" slot. They stay in the value until toggled off.
	extra    []string
	onChange func(interface{})
}

func newMultiSelectField(q *flow.MultiSelect, current []string, onChange func(interface{})) *MultiSelectField {
	regular, other := declared(q.Options, q.AllowOther)
	f := &MultiSelectField{
		q:          q,
		options:    regular,
		allowOther: other,
		selected:   make(map[string]bool),
		onChange:   onChange,
	}
	for _, v := range current {
		switch {
		case contains(regular, v):
			f.selected[v] = true
		case other && !f.otherSelected:
			f.otherSelected = true
			if v != OtherOption {
				f.otherText = v
			}
		case v != OtherOption && !contains(f.extra, v):
			f.extra = append(f.extra, v)
		}
	}
	return f
}

func (f *MultiSelectField) OtherSelected() bool { return f.otherSelected }

func (f *MultiSelectField) OtherText() string { return f.otherText }

func (f *MultiSelectField) Extra() []string { return f.extra }

// Toggle flips a declared option, or the "Other" choice when given
// OtherOption. Turning "Other" off drops its free text from the selection.
func (f *MultiSelectField) Toggle(option string) {
	if option == OtherOption && f.allowOther {
		f.otherSelected = !f.otherSelected
		if !f.otherSelected {
			f.otherText = ""
		}
		f.onChange(f.Value())
		return
	}
	if i := indexOf(f.extra, option); i >= 0 {
		f.extra = append(f.extra[:i:i], f.extra[i+1:]...)
		f.onChange(f.Value())
		return
	}
	if !contains(f.options, option) {
		return
	}
	if f.selected[option] {
		delete(f.selected, option)
	} else {
		if f.q.MaxSelections > 0 && f.count() >= f.q.MaxSelections {
			return
		}
		f.selected[option] = true
	}
	f.onChange(f.Value())
}

// TypeOther replaces the free-text member of the selection.
func (f *MultiSelectField) TypeOther(text string) {
	if !f.allowOther {
		return
	}
	f.otherSelected = true
	f.otherText = text
	f.onChange(f.Value())
}

func (f *MultiSelectField) count() int {
	n := len(f.selected) + len(f.extra)
	if f.otherSelected {
		n++
	}
	return n
}

// Value lists declared selections in option order, then the free text, then
// any extra saved values.
func (f *MultiSelectField) Value() interface{} {
	out := make([]string, 0, f.count())
	for _, o := range f.options {
		if f.selected[o] {
			out = append(out, o)
		}
	}
	if f.otherSelected {
		if f.otherText == "" {
			out = append(out, OtherOption)
		} else {
			out = append(out, f.otherText)
		}
	}
	return append(out, f.extra...)
}

func (f *MultiSelectField) View() Control {
	c := baseControl(f.q.Base, f.q.Type())
	for _, o := range f.options {
		c.Options = append(c.Options, Option{Label: o, Selected: f.selected[o]})
	}
	for _, o := range f.extra {
		c.Options = append(c.Options, Option{Label: o, Selected: true})
	}
	if f.allowOther {
		c.Options = append(c.Options, Option{Label: OtherOption, Selected: f.otherSelected})
		c.Other = &OtherBox{Selected: f.otherSelected, Text: f.otherText}
	}
	c.Value = f.Value()
	return c
}
