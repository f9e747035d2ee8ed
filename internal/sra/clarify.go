package sra

import (
	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
)

const maxClarificationQuestions = 3

// Clarify decides whether the session needs follow-up questions before
// arbitration, based on how sparse the symptom record is. questionsAsked is
// the number of clarification questions already posed this session; the
// engine stops asking after three.
func Clarify(store *symptoms.Store, questionsAsked int) models.Clarification {
	if questionsAsked >= maxClarificationQuestions {
		return models.Clarification{Priority: "low"}
	}

	recorded := store.Export()
	total := len(recorded)

	// A near-empty record needs the broad question first; attribute gaps are
	// only worth chasing once enough symptoms exist.
	if total < 2 {
		return models.Clarification{
			NeedsClarification: true,
			Questions:          []string{"Can you tell me more about how you have been feeling recently, both emotionally and physically?"},
			Reasoning:          "Too few symptoms recorded to support an assessment.",
			Priority:           "high",
		}
	}

	var questions []string
	priority := "low"
	reasoning := ""

	missingSeverity := 0
	missingDuration := 0
	for _, symptom := range recorded {
		if symptom.Severity == models.SeverityUnknown || symptom.Severity == "" {
			missingSeverity++
		}
		if symptom.Duration == models.DurationUnknown || symptom.Duration == "" {
			missingDuration++
		}
	}

	if float64(missingSeverity)/float64(total) > 0.5 {
		questions = append(questions, "How severe would you say these symptoms are: mild, moderate, or severe?")
		priority = "medium"
		reasoning = "Most recorded symptoms are missing a severity rating."
	}
	if float64(missingDuration)/float64(total) > 0.6 {
		questions = append(questions, "How long have you been experiencing these symptoms: weeks, months, or years?")
		if priority == "low" {
			priority = "medium"
			reasoning = "Most recorded symptoms are missing a duration."
		}
	}

	if len(questions) > maxClarificationQuestions-questionsAsked {
		questions = questions[:maxClarificationQuestions-questionsAsked]
	}

	return models.Clarification{
		NeedsClarification: len(questions) > 0,
		Questions:          questions,
		Reasoning:          reasoning,
		Priority:           priority,
	}
}
