package intake

// Step is one state of the intake flow.
type Step string

const (
	StepPreferences        Step = "preferences"
	StepIncome             Step = "income"
	StepContact            Step = "contact"
	StepValidationDecision Step = "validation_decision"
	StepDocuments          Step = "documents"
	StepResults            Step = "results"
)

// order is the traversal order used for back-navigation resets.
var order = map[Step]int{
	StepPreferences:        0,
	StepIncome:             1,
	StepContact:            2,
	StepValidationDecision: 3,
	StepDocuments:          4,
	StepResults:            5,
}

func (s Step) Valid() bool {
	_, ok := order[s]
	return ok
}

// Before reports whether s comes earlier in the flow than other.
func (s Step) Before(other Step) bool {
	return order[s] < order[other]
}

// checkpoint is the persistence side effect run on a forward transition.
type checkpoint int

const (
	checkpointNone checkpoint = iota
	checkpointInitial
	checkpointFinal
)

type transition struct {
	guard func(*Session, Options) error
	// next picks the target; only the validation decision forks.
	next       func(*Session) Step
	checkpoint checkpoint
}

// checkpointFor returns the side effect for moving to target. Every entry into
// results is preceded by the final save.
func (t transition) checkpointFor(target Step) checkpoint {
	if target == StepResults {
		return checkpointFinal
	}
	return t.checkpoint
}

func fixed(step Step) func(*Session) Step {
	return func(*Session) Step { return step }
}

var transitions = map[Step]transition{
	StepPreferences: {
		guard: guardPreferences,
		next:  fixed(StepIncome),
	},
	StepIncome: {
		guard: guardIncome,
		next:  fixed(StepContact),
	},
	StepContact: {
		guard:      guardContact,
		next:       fixed(StepValidationDecision),
		checkpoint: checkpointInitial,
	},
	StepValidationDecision: {
		guard: guardDecision,
		next: func(s *Session) Step {
			if *s.WantsValidation {
				return StepDocuments
			}
			return StepResults
		},
	},
	StepDocuments: {
		guard: guardDocuments,
		next:  fixed(StepResults),
	},
}

// previous returns the step Back moves to. Results returns to documents only
// when the prospect went through document collection.
func previous(s *Session) (Step, bool) {
	switch s.Step {
	case StepIncome:
		return StepPreferences, true
	case StepContact:
		return StepIncome, true
	case StepValidationDecision:
		return StepContact, true
	case StepDocuments:
		return StepValidationDecision, true
	case StepResults:
		if s.WantsValidation != nil && *s.WantsValidation {
			return StepDocuments, true
		}
		return StepValidationDecision, true
	}
	return s.Step, false
}
