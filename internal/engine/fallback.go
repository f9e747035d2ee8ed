package engine

import (
	"strings"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// standardDifferentials accompany every fallback diagnosis so downstream
// consumers always see alternatives worth ruling out.
func standardDifferentials() []models.DifferentialDiagnosis {
	return []models.DifferentialDiagnosis{
		{Name: "Anxiety Disorder", Reason: "Anxiety features are common across presentations and worth ruling out.", Confidence: 0.4},
		{Name: "Depressive Disorder", Reason: "Mood features are common across presentations and worth ruling out.", Confidence: 0.4},
		{Name: "Adjustment Disorder", Reason: "Recent stressors can explain a mixed symptom picture.", Confidence: 0.3},
	}
}

// fallbackDiagnosis is the symptom-driven ladder used when the completion
// chain fails or returns nothing usable. It inspects the recorded categories
// and the presenting concern, from most to least specific.
func fallbackDiagnosis(arb arbitrationContext) models.Diagnosis {
	concern := strings.ToLower(arb.concern)

	categories := make(map[models.Category]int)
	for _, symptom := range arb.symptoms {
		categories[symptom.Category]++
	}

	var primary models.PrimaryDiagnosis
	var reasoning string
	switch {
	case categories[models.CategoryAnxiety] > 0 || categories[models.CategoryPanic] > 0 ||
		utils.ContainsAny(concern, "anxious", "anxiety", "panic", "worry"):
		primary = models.PrimaryDiagnosis{
			Name:       "Anxiety Disorder",
			Severity:   "moderate",
			DSM5Code:   "300.02",
			Confidence: 0.6,
		}
		reasoning = "Anxiety-related symptoms dominate the recorded presentation."
	case categories[models.CategoryMood] > 0 || utils.ContainsAny(concern, "depress", "sad"):
		primary = models.PrimaryDiagnosis{
			Name:       "Depressive Disorder",
			Severity:   "moderate",
			DSM5Code:   "296.3",
			Confidence: 0.6,
		}
		reasoning = "Mood-related symptoms dominate the recorded presentation."
	case len(arb.symptoms) > 5:
		primary = models.PrimaryDiagnosis{
			Name:       "Multiple Mental Health Concerns",
			Severity:   "moderate",
			Confidence: 0.5,
		}
		reasoning = "A broad symptom presentation without a single dominant category."
	case len(arb.symptoms) > 0:
		primary = models.PrimaryDiagnosis{
			Name:       "Mental Health Concerns Requiring Further Evaluation",
			Severity:   "mild",
			Confidence: 0.5,
		}
		reasoning = "Symptoms were recorded but do not point to a specific condition."
	default:
		return PlaceholderDiagnosis()
	}

	return models.Diagnosis{
		Primary:       primary,
		Differentials: standardDifferentials(),
		Confidence:    primary.Confidence,
		Reasoning:     reasoning,
	}
}

// PlaceholderDiagnosis is the last-resort terminal result. It exists so a
// session can always complete, whatever went wrong upstream; the session
// layer also uses it when arbitration panics.
func PlaceholderDiagnosis() models.Diagnosis {
	return models.Diagnosis{
		Primary: models.PrimaryDiagnosis{
			Name:       "Mental Health Assessment Completed",
			Severity:   "pending_evaluation",
			DSM5Code:   "Pending",
			Confidence: 0.3,
		},
		Differentials: standardDifferentials(),
		Confidence:    0.3,
		Reasoning:     "The assessment completed without enough signal for a specific diagnosis.",
	}
}

// deterministicDiagnosis arbitrates without a completion model: a three-way
// decision on criteria outcomes and symptom presence, all at fixed confidence.
func deterministicDiagnosis(arb arbitrationContext) models.Diagnosis {
	criteriaMet := false
	for id, stage := range arb.stages {
		if models.IsDiagnosticStage(id) && stage.CriteriaExplicitlyMet() {
			criteriaMet = true
			break
		}
	}

	var name, reasoning string
	switch {
	case criteriaMet && len(arb.symptoms) > 0:
		name = "Mental Health Condition Identified - Further Evaluation Recommended"
		reasoning = "Diagnostic criteria were met in at least one stage and symptoms are recorded."
	case len(arb.symptoms) > 0:
		name = "Mental Health Symptoms Present - Specialist Consultation Recommended"
		reasoning = "Symptoms are recorded but no stage confirmed full diagnostic criteria."
	default:
		name = "Assessment Completed - No Significant Mental Health Concerns Identified"
		reasoning = "No symptoms were recorded across the assessment."
	}

	return models.Diagnosis{
		Primary: models.PrimaryDiagnosis{
			Name:       name,
			Severity:   "pending_evaluation",
			Confidence: 0.5,
		},
		Differentials: standardDifferentials(),
		Confidence:    0.5,
		Reasoning:     reasoning,
	}
}
