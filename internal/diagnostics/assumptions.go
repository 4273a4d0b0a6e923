package diagnostics

// AssumptionCategory groups causal identification assumptions by the part
// of the model they constrain.
type AssumptionCategory string

const (
	AssumptionIdentification AssumptionCategory = "identification"
	AssumptionModeling       AssumptionCategory = "modeling"
	AssumptionData           AssumptionCategory = "data"
)

// Assumption is a declared, human-readable precondition of an estimator.
// Assumptions are metadata: the engine surfaces them in summaries and
// reports but only a subset can be checked automatically.
type Assumption struct {
	Name                     string             `json:"name"`
	Category                 AssumptionCategory `json:"category"`
	Description              string             `json:"description"`
	IsTestable               bool               `json:"is_testable"`
	IsAutomaticallyValidated bool               `json:"is_automatically_validated"`
}

// ToMap converts the assumption to a plain mapping for serialization.
func (a Assumption) ToMap() map[string]any {
	return map[string]any{
		"name":                       a.Name,
		"category":                   string(a.Category),
		"description":                a.Description,
		"is_testable":                a.IsTestable,
		"is_automatically_validated": a.IsAutomaticallyValidated,
	}
}

var (
	assumptionExchangeability = Assumption{
		Name:        "conditional_exchangeability",
		Category:    AssumptionIdentification,
		Description: "treatment assignment is independent of potential outcomes given the measured covariates (no unmeasured confounding)",
		IsTestable:  false,
	}
	assumptionPositivity = Assumption{
		Name:                     "positivity",
		Category:                 AssumptionIdentification,
		Description:              "every sample has a non-zero probability of receiving each treatment level",
		IsTestable:               true,
		IsAutomaticallyValidated: true,
	}
	assumptionConsistency = Assumption{
		Name:        "consistency",
		Category:    AssumptionIdentification,
		Description: "the observed outcome under the received treatment equals the corresponding potential outcome",
		IsTestable:  false,
	}
	assumptionNoInterference = Assumption{
		Name:        "no_interference",
		Category:    AssumptionIdentification,
		Description: "one sample's treatment does not affect another sample's outcome",
		IsTestable:  false,
	}
	assumptionTreatmentModel = Assumption{
		Name:        "correct_treatment_model",
		Category:    AssumptionModeling,
		Description: "the treatment model is correctly specified for P(A|X)",
		IsTestable:  false,
	}
	assumptionOutcomeModel = Assumption{
		Name:        "correct_outcome_model",
		Category:    AssumptionModeling,
		Description: "the outcome model is correctly specified for E[Y|A,X]",
		IsTestable:  false,
	}
	assumptionEitherModel = Assumption{
		Name:        "either_model_correct",
		Category:    AssumptionModeling,
		Description: "at least one of the treatment model and the outcome model is correctly specified",
		IsTestable:  false,
	}
)

var (
	ipwAssumptions = []Assumption{
		assumptionExchangeability,
		assumptionPositivity,
		assumptionConsistency,
		assumptionNoInterference,
		assumptionTreatmentModel,
	}
	standardizationAssumptions = []Assumption{
		assumptionExchangeability,
		assumptionConsistency,
		assumptionNoInterference,
		assumptionOutcomeModel,
	}
	doublyRobustAssumptions = []Assumption{
		assumptionExchangeability,
		assumptionPositivity,
		assumptionConsistency,
		assumptionNoInterference,
		assumptionEitherModel,
	}
	matchingAssumptions = []Assumption{
		assumptionExchangeability,
		assumptionPositivity,
		assumptionConsistency,
		assumptionNoInterference,
	}
)

// estimatorAssumptions maps an estimator class to its declared assumption
// set. WeightedStandardization is doubly robust, so it carries the
// either-model-correct set rather than the pure weighting one.
var estimatorAssumptions = map[string][]Assumption{
	"IPW":                     ipwAssumptions,
	"Standardization":         standardizationAssumptions,
	"WeightedStandardization": doublyRobustAssumptions,
	"DoublyRobust":            doublyRobustAssumptions,
	"Matching":                matchingAssumptions,
	"TMLE":                    doublyRobustAssumptions,
	"RLearner":                doublyRobustAssumptions,
	"XLearner":                standardizationAssumptions,
}

// AssumptionsFor returns the assumption set declared for an estimator
// class. Unknown classes fall back to the identification core shared by all
// weighting estimators.
func AssumptionsFor(estimatorClass string) []Assumption {
	if set, ok := estimatorAssumptions[estimatorClass]; ok {
		out := make([]Assumption, len(set))
		copy(out, set)
		return out
	}
	out := make([]Assumption, len(matchingAssumptions))
	copy(out, matchingAssumptions)
	return out
}
