// Package flow models the section/question documents that drive each
// onboarding stage. Questions are a closed set of variants; code that must
// handle every variant implements Visitor, so adding a variant breaks the
// build until every visitor handles it.
package flow

import (
	"encoding/json"
	"fmt"
)

type Type string

const (
	TypeSingleSelect       Type = "single_select"
	TypeMultiSelect        Type = "multi_select"
	TypeEmotiveScale       Type = "emotive_scale"
	TypeSignalScale        Type = "signal_scale"
	TypeSlidingScale       Type = "sliding_scale"
	TypeBooleanConditional Type = "single_select_with_boolean_conditional"
	TypeText               Type = "text"
)

// Base carries the fields every question has.
type Base struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Subtext  string `json:"subtext,omitempty"`
	Required bool   `json:"required"`
}

func (b *Base) Meta() *Base { return b }

// Question is implemented only by the variants in this package.
type Question interface {
	Meta() *Base
	Type() Type
	Accept(v Visitor)
	question()
}

// Visitor has one method per variant.
type Visitor interface {
	VisitSingleSelect(q *SingleSelect)
	VisitMultiSelect(q *MultiSelect)
	VisitEmotiveScale(q *EmotiveScale)
	VisitSignalScale(q *SignalScale)
	VisitSlidingScale(q *SlidingScale)
	VisitBooleanConditional(q *BooleanConditional)
	VisitText(q *Text)
}

type SingleSelect struct {
	Base
	Options    []string `json:"options"`
	AllowOther bool     `json:"allow_other,omitempty"`
}

type MultiSelect struct {
	Base
	Options       []string `json:"options"`
	AllowOther    bool     `json:"allow_other,omitempty"`
	MaxSelections int      `json:"max_selections,omitempty"`
}

// EmotiveScale is an ordered set of mood labels, lowest first.
type EmotiveScale struct {
	Base
	Options []string `json:"options"`
}

// SignalScale is an ordered set of strength labels, weakest first.
type SignalScale struct {
	Base
	Options []string `json:"options"`
}

type SlidingScale struct {
	Base
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Step     float64 `json:"step"`
	MinLabel string  `json:"min_label,omitempty"`
	MaxLabel string  `json:"max_label,omitempty"`
}

// BooleanConditional is a single select where picking "Yes" reveals a
// free-text follow-up.
type BooleanConditional struct {
	Base
	Options  []string `json:"options"`
	FollowUp string   `json:"follow_up,omitempty"`
}

type Text struct {
	Base
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
	MaxLength   int    `json:"max_length,omitempty"`
}

func (*SingleSelect) Type() Type       { return TypeSingleSelect }
func (*MultiSelect) Type() Type        { return TypeMultiSelect }
func (*EmotiveScale) Type() Type       { return TypeEmotiveScale }
func (*SignalScale) Type() Type        { return TypeSignalScale }
func (*SlidingScale) Type() Type       { return TypeSlidingScale }
func (*BooleanConditional) Type() Type { return TypeBooleanConditional }
func (*Text) Type() Type               { return TypeText }

func (q *SingleSelect) Accept(v Visitor)       { v.VisitSingleSelect(q) }
func (q *MultiSelect) Accept(v Visitor)        { v.VisitMultiSelect(q) }
func (q *EmotiveScale) Accept(v Visitor)       { v.VisitEmotiveScale(q) }
func (q *SignalScale) Accept(v Visitor)        { v.VisitSignalScale(q) }
func (q *SlidingScale) Accept(v Visitor)       { v.VisitSlidingScale(q) }
func (q *BooleanConditional) Accept(v Visitor) { v.VisitBooleanConditional(q) }
func (q *Text) Accept(v Visitor)               { v.VisitText(q) }

func (*SingleSelect) question()       {}
func (*MultiSelect) question()        {}
func (*EmotiveScale) question()       {}
func (*SignalScale) question()        {}
func (*SlidingScale) question()       {}
func (*BooleanConditional) question() {}
func (*Text) question()               {}

// New returns an empty question of the given type.
func New(t Type) (Question, error) {
	switch t {
	case TypeSingleSelect:
		return &SingleSelect{}, nil
	case TypeMultiSelect:
		return &MultiSelect{}, nil
	case TypeEmotiveScale:
		return &EmotiveScale{}, nil
	case TypeSignalScale:
		return &SignalScale{}, nil
	case TypeSlidingScale:
		return &SlidingScale{}, nil
	case TypeBooleanConditional:
		return &BooleanConditional{}, nil
	case TypeText:
		return &Text{}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", t)
}

// QuestionList serializes each question with a "type" discriminator.
type QuestionList []Question

func (l QuestionList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, q := range l {
		body, err := json.Marshal(q)
		if err != nil {
			return nil, err
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		typ, _ := json.Marshal(q.Type())
		fields["type"] = typ
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return json.Marshal(out)
}

func (l *QuestionList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	list := make(QuestionList, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Type Type `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		q, err := New(head.Type)
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if err := json.Unmarshal(raw, q); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		list = append(list, q)
	}
	*l = list
	return nil
}
