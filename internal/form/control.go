// Package form turns questions and saved answers into interactive controls.
// Controls hold the in-progress value and report every change through the
// onChange callback; persisting the value is the caller's job.
package form

import (
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

// OtherOption is the synthetic choice that opens the free-text box.
const OtherOption = "Other"

// YesOption reveals the follow-up of a boolean conditional question.
const YesOption = "Yes"

type Option struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type OtherBox struct {
	Selected bool   `json:"selected"`
	Text     string `json:"text"`
}

type FollowUp struct {
	Prompt  string `json:"prompt"`
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

type Scale struct {
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Step     float64  `json:"step"`
	Value    *float64 `json:"value"`
	MinLabel string   `json:"min_label,omitempty"`
	MaxLabel string   `json:"max_label,omitempty"`
}

// Control is the render-ready view of one question.
type Control struct {
	QuestionID string      `json:"question_id"`
	Type       flow.Type   `json:"type"`
	Question   string      `json:"question"`
	Subtext    string      `json:"subtext,omitempty"`
	Required   bool        `json:"required"`
	Options    []Option    `json:"options,omitempty"`
	Other      *OtherBox   `json:"other,omitempty"`
	FollowUp   *FollowUp   `json:"follow_up,omitempty"`
	Scale      *Scale      `json:"scale,omitempty"`
	Text       string      `json:"text,omitempty"`
	Multiline  bool        `json:"multiline,omitempty"`
	Value      interface{} `json:"value"`
}

// Field is a live control.
type Field interface {
	View() Control
	Value() interface{}
}

// Render builds the field for q initialised from current. onChange may be nil.
func Render(q flow.Question, current interface{}, onChange func(interface{})) Field {
	if onChange == nil {
		onChange = func(interface{}) {}
	}
	r := &renderer{current: current, onChange: onChange}
	q.Accept(r)
	return r.field
}

type renderer struct {
	current  interface{}
	onChange func(interface{})
	field    Field
}

func (r *renderer) VisitSingleSelect(q *flow.SingleSelect) {
	r.field = newSelectField(q.Base, q.Type(), q.Options, q.AllowOther, asString(r.current), r.onChange)
}

func (r *renderer) VisitMultiSelect(q *flow.MultiSelect) {
	r.field = newMultiSelectField(q, asStrings(r.current), r.onChange)
}

func (r *renderer) VisitEmotiveScale(q *flow.EmotiveScale) {
	r.field = newSelectField(q.Base, q.Type(), q.Options, false, asString(r.current), r.onChange)
}

func (r *renderer) VisitSignalScale(q *flow.SignalScale) {
	r.field = newSelectField(q.Base, q.Type(), q.Options, false, asString(r.current), r.onChange)
}

func (r *renderer) VisitSlidingScale(q *flow.SlidingScale) {
	r.field = newSlidingField(q, r.current, r.onChange)
}

func (r *renderer) VisitBooleanConditional(q *flow.BooleanConditional) {
	r.field = newConditionalField(q, asString(r.current), r.onChange)
}

func (r *renderer) VisitText(q *flow.Text) {
	r.field = &TextField{q: q, text: asString(r.current), onChange: r.onChange}
}

func baseControl(b flow.Base, t flow.Type) Control {
	return Control{
		QuestionID: b.ID,
		Type:       t,
		Question:   b.Question,
		Subtext:    b.Subtext,
		Required:   b.Required,
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStrings(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vals != "" {
			return []string{vals}
		}
	}
	return nil
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// declared splits the options into regular choices and whether the
// synthetic "Other" choice is on offer.
func declared(options []string, allowOther bool) ([]string, bool) {
	regular := make([]string, 0, len(options))
	for _, o := range options {
		if o == OtherOption {
			allowOther = true
			continue
		}
		regular = append(regular, o)
	}
	return regular, allowOther
}

func contains(list []string, v string) bool {
	return indexOf(list, v) >= 0
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}
