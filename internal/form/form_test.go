package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/flow"
)

func sizeQuestion() *flow.SingleSelect {
	return &flow.SingleSelect{
		Base:       flow.Base{ID: "size", Question: "Size?", Required: true},
		Options:    []string{"Small", "Large"},
		AllowOther: true,
	}
}

func recorder() (*[]interface{}, func(interface{})) {
	var got []interface{}
	return &got, func(v interface{}) { got = append(got, v) }
}

func TestSelectOtherEscapeHatch(t *testing.T) {
	changes, onChange := recorder()
	f := Render(sizeQuestion(), nil, onChange).(*SelectField)

	f.Choose(OtherOption)
	assert.Equal(t, OtherOption, f.Value())

	f.TypeOther("Medium")
	assert.Equal(t, "Medium", f.Value())

	f.Choose("Small")
	assert.Equal(t, "Small", f.Value())
	assert.False(t, f.OtherSelected())
	assert.Empty(t, f.OtherText())

	assert.Equal(t, []interface{}{OtherOption, "Medium", "Small"}, *changes)
}

func TestSelectInitialisesFromSavedValue(t *testing.T) {
	tests := []struct {
		name      string
		saved     interface{}
		selected  bool
		otherText string
		value     interface{}
	}{
		{"declared option", "Large", false, "", "Large"},
		{"free text", "Medium", true, "Medium", "Medium"},
		{"literal other", OtherOption, true, "", OtherOption},
		{"nothing", nil, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Render(sizeQuestion(), tt.saved, nil).(*SelectField)
			assert.Equal(t, tt.selected, f.OtherSelected())
			assert.Equal(t, tt.otherText, f.OtherText())
			assert.Equal(t, tt.value, f.Value())
		})
	}
}

func TestSelectWithoutOtherIgnoresFreeText(t *testing.T) {
	q := sizeQuestion()
	q.AllowOther = false
	f := Render(q, "Medium", nil).(*SelectField)
	assert.False(t, f.OtherSelected())
	assert.Equal(t, "", f.Value())

	f.TypeOther("Medium")
	assert.Equal(t, "", f.Value())
	assert.Nil(t, f.View().Other)
}

func TestMultiSelectOther(t *testing.T) {
	q := &flow.MultiSelect{
		Base:       flow.Base{ID: "sectors", Question: "Sectors?"},
		Options:    []string{"Energy", "Water"},
		AllowOther: true,
	}
	f := Render(q, []interface{}{"Water", "Mining"}, nil).(*MultiSelectField)
	assert.True(t, f.OtherSelected())
	assert.Equal(t, "Mining", f.OtherText())
	assert.Equal(t, []string{"Water", "Mining"}, f.Value())

	f.Toggle("Energy")
	assert.Equal(t, []string{"Energy", "Water", "Mining"}, f.Value())

	f.Toggle(OtherOption)
	assert.Equal(t, []string{"Energy", "Water"}, f.Value())
	assert.Empty(t, f.OtherText())
}

func TestMultiSelectKeepsExtraSavedValues(t *testing.T) {
	q := &flow.MultiSelect{
		Base:       flow.Base{ID: "sectors", Question: "Sectors?"},
		Options:    []string{"Energy", "Water"},
		AllowOther: true,
	}
	saved := []interface{}{"Water", "Mining", "Forestry", "Fishing"}
	f := Render(q, saved, nil).(*MultiSelectField)
	assert.Equal(t, "Mining", f.OtherText())
	assert.Equal(t, []string{"Forestry", "Fishing"}, f.Extra())
	assert.Equal(t, []string{"Water", "Mining", "Forestry", "Fishing"}, f.Value())

	f.Toggle("Forestry")
	assert.Equal(t, []string{"Water", "Mining", "Fishing"}, f.Value())

	err := Validate(q, f.Value())
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "only one answer outside the listed options")

	closed := &flow.MultiSelect{Base: flow.Base{ID: "c"}, Options: []string{"a"}}
	g := Render(closed, []interface{}{"a", "retired"}, nil).(*MultiSelectField)
	assert.Equal(t, []string{"a", "retired"}, g.Value())
}

func TestMultiSelectMaxSelections(t *testing.T) {
	q := &flow.MultiSelect{
		Base:          flow.Base{ID: "pick", Question: "Pick"},
		Options:       []string{"a", "b", "c"},
		MaxSelections: 2,
	}
	f := Render(q, nil, nil).(*MultiSelectField)
	f.Toggle("a")
	f.Toggle("b")
	f.Toggle("c")
	assert.Equal(t, []string{"a", "b"}, f.Value())
}

func TestConditionalRoundTrip(t *testing.T) {
	q := &flow.BooleanConditional{
		Base:     flow.Base{ID: "targets", Question: "Targets?"},
		FollowUp: "Which?",
	}

	f := Render(q, "Yes, wind turbines", nil).(*ConditionalField)
	assert.Equal(t, YesOption, f.Selected())
	assert.Equal(t, "wind turbines", f.FollowUpText())
	assert.True(t, f.View().FollowUp.Visible)
	assert.Equal(t, "Yes, wind turbines", f.Value())

	f.Choose("No")
	assert.Equal(t, "No", f.Value())
	assert.Empty(t, f.FollowUpText())
	assert.False(t, f.View().FollowUp.Visible)

	f.TypeFollowUp("ignored")
	assert.Equal(t, "No", f.Value())

	f.Choose(YesOption)
	assert.Equal(t, YesOption, f.Value())
	f.TypeFollowUp("solar")
	assert.Equal(t, "Yes, solar", f.Value())
}

func TestSplitJoinConditional(t *testing.T) {
	for _, v := range []string{"Yes", "No", "Yes, a, b", ""} {
		sel, follow := SplitConditional(v)
		assert.Equal(t, v, JoinConditional(sel, follow), v)
	}
}

func TestSlidingSnapsToStep(t *testing.T) {
	q := &flow.SlidingScale{Base: flow.Base{ID: "budget"}, Min: 0, Max: 100, Step: 5}
	f := Render(q, nil, nil).(*SlidingField)
	assert.Nil(t, f.Value())

	f.Set(42)
	assert.Equal(t, 40.0, f.Value())
	f.Set(140)
	assert.Equal(t, 100.0, f.Value())

	restored := Render(q, 55.0, nil)
	assert.Equal(t, 55.0, restored.Value())
}

func TestTextTruncates(t *testing.T) {
	q := &flow.Text{Base: flow.Base{ID: "note"}, MaxLength: 3}
	f := Render(q, nil, nil).(*TextField)
	f.Type("abcdef")
	assert.Equal(t, "abc", f.Value())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(sizeQuestion(), nil), ErrRequired)
	assert.ErrorIs(t, Validate(sizeQuestion(), "  "), ErrRequired)
	assert.NoError(t, Validate(sizeQuestion(), "Small"))
	assert.NoError(t, Validate(sizeQuestion(), "Medium"))

	strict := sizeQuestion()
	strict.AllowOther = false
	assert.ErrorIs(t, Validate(strict, "Medium"), ErrInvalidValue)

	slider := &flow.SlidingScale{Base: flow.Base{ID: "s"}, Min: 1, Max: 5}
	assert.ErrorIs(t, Validate(slider, 9.0), ErrInvalidValue)
	assert.ErrorIs(t, Validate(slider, "3"), ErrInvalidValue)

	cond := &flow.BooleanConditional{Base: flow.Base{ID: "c"}}
	assert.NoError(t, Validate(cond, "Yes, lots"))
	assert.ErrorIs(t, Validate(cond, "Maybe"), ErrInvalidValue)

	multi := &flow.MultiSelect{Base: flow.Base{ID: "m"}, Options: []string{"a"}, AllowOther: true}
	assert.NoError(t, Validate(multi, []interface{}{"a", "z"}))
	assert.ErrorIs(t, Validate(multi, []interface{}{"y", "z"}), ErrInvalidValue)
}

func TestValidateAnswersCollectsPerQuestion(t *testing.T) {
	sections, ok := flow.Template("basic_profile")
	require.True(t, ok)

	err := ValidateAnswers(sections, map[string]interface{}{"company_size": "huge"})
	require.Error(t, err)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.ErrorIs(t, errs["company_name"], ErrRequired)
	assert.ErrorIs(t, errs["company_size"], ErrInvalidValue)
	assert.NotContains(t, errs, "sectors")

	assert.NoError(t, ValidateAnswers(sections, map[string]interface{}{
		"company_name": "Acme",
		"company_size": "1-10",
	}))
}

func TestWizardStateSurvivesSerialization(t *testing.T) {
	sections, _ := flow.Template("basic_profile")
	w := NewWizard(sections, WizardState{})

	assert.Error(t, w.Next())
	fields := w.Fields()
	fields[0].(*TextField).Type("Acme")
	fields[1].(*SelectField).Choose("11-50")
	require.NoError(t, w.Next())
	assert.True(t, w.Done())

	data, err := json.Marshal(w.State())
	require.NoError(t, err)
	var state WizardState
	require.NoError(t, json.Unmarshal(data, &state))

	restored := NewWizard(sections, state)
	s, _ := restored.Section()
	assert.Equal(t, "goals", s.ID)
	restored.Back()
	assert.Equal(t, "Acme", restored.Fields()[0].Value())
}
