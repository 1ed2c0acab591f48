package flow

// Templates are the built-in starting points for new flows.
var Templates = map[string]func() []Section{
	"blank": func() []Section { return []Section{} },
	"basic_profile": func() []Section {
		return []Section{
			{
				ID:    "about",
				Title: "About you",
				Questions: QuestionList{
					&Text{Base: Base{ID: "company_name", Question: "What is your company called?", Required: true}},
					&SingleSelect{
						Base:       Base{ID: "company_size", Question: "How many people work there?", Required: true},
						Options:    []string{"1-10", "11-50", "51-200", "200+"},
						AllowOther: false,
					},
					&MultiSelect{
						Base:       Base{ID: "sectors", Question: "Which sectors do you operate in?"},
						Options:    []string{"Energy", "Manufacturing", "Agriculture", "Construction"},
						AllowOther: true,
					},
				},
			},
			{
				ID:    "goals",
				Title: "Goals",
				Questions: QuestionList{
					&BooleanConditional{
						Base:     Base{ID: "has_targets", Question: "Do you have sustainability targets?"},
						Options:  []string{"Yes", "No"},
						FollowUp: "Which ones?",
					},
					&EmotiveScale{
						Base:    Base{ID: "confidence", Question: "How confident are you about reaching them?"},
						Options: []string{"😟", "😐", "🙂", "😀"},
					},
				},
			},
		}
	},
}

// Template returns a fresh copy of a built-in template.
func Template(name string) ([]Section, bool) {
	build, ok := Templates[name]
	if !ok {
		return nil, false
	}
	return build(), true
}
