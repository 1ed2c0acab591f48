package form

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

// SelectField serves single selects and the labelled scales.
type SelectField struct {
	base          flow.Base
	typ           flow.Type
	options       []string
	allowOther    bool
	selected      string
	otherSelected bool
	otherText     string
	onChange      func(interface{})
}

// A value outside the declared options is an "Other" answer.
func newSelectField(base flow.Base, typ flow.Type, options []string, allowOther bool, current string, onChange func(interface{})) *SelectField {
	regular, other := declared(options, allowOther)
	f := &SelectField{base: base, typ: typ, options: regular, allowOther: other, onChange: onChange}
	switch {
	case current == "":
	case contains(regular, current):
		f.selected = current
	case other:
		f.otherSelected = true
		if current != OtherOption {
			f.otherText = current
		}
	}
	return f
}

// OtherSelected reports whether the free-text choice is active.
func (f *SelectField) OtherSelected() bool { return f.otherSelected }

// OtherText is the content of the free-text box.
func (f *SelectField) OtherText() string { return f.otherText }

// Choose selects a declared option, or the "Other" choice when given OtherOption.
func (f *SelectField) Choose(option string) {
	if option == OtherOption && f.allowOther {
		f.otherSelected = true
		f.selected = ""
		f.onChange(f.Value())
		return
	}
	if !contains(f.options, option) {
		return
	}
	f.selected = option
	f.otherSelected = false
	f.otherText = ""
	f.onChange(f.Value())
}

// TypeOther replaces the free-text box content and selects "Other".
func (f *SelectField) TypeOther(text string) {
	if !f.allowOther {
		return
	}
	f.otherSelected = true
	f.selected = ""
	f.otherText = text
	f.onChange(f.Value())
}

func (f *SelectField) Value() interface{} {
	if f.otherSelected {
		if f.otherText == "" {
			return OtherOption
		}
		return f.otherText
	}
	return f.selected
}

func (f *SelectField) View() Control {
	c := baseControl(f.base, f.typ)
	for _, o := range f.options {
		c.Options = append(c.Options, Option{Label: o, Selected: !f.otherSelected && o == f.selected})
	}
	if f.allowOther {
		c.Options = append(c.Options, Option{Label: OtherOption, Selected: f.otherSelected})
		c.Other = &OtherBox{Selected: f.otherSelected, Text: f.otherText}
	}
	c.Value = f.Value()
	return c
}
