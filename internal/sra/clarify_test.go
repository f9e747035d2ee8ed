package sra

import (
	"testing"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
)

func TestClarifySparseStore(t *testing.T) {
	clarification := Clarify(seedStore(models.Symptom{Name: "worry", Category: models.CategoryAnxiety}), 0)

	if !clarification.NeedsClarification {
		t.Fatal("single-symptom store must need clarification")
	}
	if clarification.Priority != "high" {
		t.Fatalf("priority = %s, want high", clarification.Priority)
	}
}

func TestClarifyThinRecordAsksOnlyBroadQuestion(t *testing.T) {
	// One symptom missing both severity and duration: the broad question
	// stands alone, without attribute follow-ups queued behind it.
	clarification := Clarify(seedStore(models.Symptom{Name: "worry", Category: models.CategoryAnxiety}), 0)

	if len(clarification.Questions) != 1 {
		t.Fatalf("questions = %d, want 1: %v", len(clarification.Questions), clarification.Questions)
	}
	if clarification.Priority != "high" {
		t.Fatalf("priority = %s, want high", clarification.Priority)
	}
}

func TestClarifyMissingSeverity(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "worry", Category: models.CategoryAnxiety},
		models.Symptom{Name: "low mood", Category: models.CategoryMood},
		models.Symptom{Name: "insomnia", Category: models.CategorySleep, Severity: models.SeverityModerate, Duration: models.DurationMonths},
	)

	clarification := Clarify(store, 0)
	if !clarification.NeedsClarification {
		t.Fatal("expected clarification for missing attributes")
	}
	if clarification.Priority != "medium" {
		t.Fatalf("priority = %s, want medium", clarification.Priority)
	}
}

func TestClarifyCompleteStore(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "worry", Category: models.CategoryAnxiety, Severity: models.SeverityModerate, Duration: models.DurationMonths},
		models.Symptom{Name: "low mood", Category: models.CategoryMood, Severity: models.SeverityMild, Duration: models.DurationWeeks},
	)

	clarification := Clarify(store, 0)
	if clarification.NeedsClarification {
		t.Fatalf("complete store should not need clarification: %+v", clarification)
	}
}

func TestClarifyBudgetExhausted(t *testing.T) {
	clarification := Clarify(symptoms.NewStore(), 3)
	if clarification.NeedsClarification {
		t.Fatal("question budget exhausted, no more clarification")
	}
}
