package form

import (
	"math"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

type SlidingField struct {
	q        *flow.SlidingScale
	value    *float64
	onChange func(interface{})
}

func newSlidingField(q *flow.SlidingScale, current interface{}, onChange func(interface{})) *SlidingField {
	f := &SlidingField{q: q, onChange: onChange}
	if n, ok := asNumber(current); ok {
		v := f.clamp(n)
		f.value = &v
	}
	return f
}

// clamp snaps n onto the scale's step grid within [min, max].
func (f *SlidingField) clamp(n float64) float64 {
	if n < f.q.Min {
		n = f.q.Min
	}
	if n > f.q.Max {
		n = f.q.Max
	}
	if f.q.Step > 0 {
		steps := math.Round((n - f.q.Min) / f.q.Step)
		n = f.q.Min + steps*f.q.Step
		if n > f.q.Max {
			n -= f.q.Step
		}
	}
	return n
}

func (f *SlidingField) Set(n float64) {
	v := f.clamp(n)
	f.value = &v
	f.onChange(v)
}

func (f *SlidingField) Value() interface{} {
	if f.value == nil {
		return nil
	}
	return *f.value
}

func (f *SlidingField) View() Control {
	c := baseControl(f.q.Base, f.q.Type())
	c.Scale = &Scale{
		Min:      f.q.Min,
		Max:      f.q.Max,
		Step:     f.q.Step,
		Value:    f.value,
		MinLabel: f.q.MinLabel,
		MaxLabel: f.q.MaxLabel,
	}
	c.Value = f.Value()
	return c
}

type TextField struct {
	q        *flow.Text
	text     string
	onChange func(interface{})
}

func (f *TextField) Type(text string) {
	if f.q.MaxLength > 0 && len([]rune(text)) > f.q.MaxLength {
		text = string([]rune(text)[:f.q.MaxLength])
	}
	f.text = text
	f.onChange(text)
}

func (f *TextField) Value() interface{} { return f.text }

func (f *TextField) View() Control {
	c := baseControl(f.q.Base, f.q.Type())
	c.Text = f.text
	c.Multiline = f.q.Multiline
	c.Value = f.text
	return c
}
