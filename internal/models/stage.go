package models

import (
	"strings"
	"time"
)

// StageResult is the typed shape of one prior assessment stage's output.
// Upstream stages are heterogeneous, so every field is optional; typed
// accessors below replace presence/absence probing of raw maps.
type StageResult struct {
	Status          string         `json:"status,omitempty"`
	Diagnosis       string         `json:"diagnosis,omitempty"`
	Assessment      string         `json:"assessment,omitempty"`
	CriteriaMet     *bool          `json:"criteria_met,omitempty"`
	Symptoms        []string       `json:"symptoms,omitempty"`
	KeySymptoms     []string       `json:"key_symptoms,omitempty"`
	PositiveScreens []string       `json:"positive_screens,omitempty"`
	Concern         string         `json:"concern,omitempty"`
	Demographics    map[string]any `json:"demographics,omitempty"`
	Result          *StageResult   `json:"result,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Stage ids with special meaning to the arbitration engine.
const (
	StageDemographics       = "demographics"
	StagePresentingConcern  = "presenting_concern"
	StageScreening          = "scid_screening"
	StageDiagnosticAnalysis = "da_diagnostic_analysis"
)

// DiagnosticStageIDs lists the disorder-specific stages whose payloads feed
// criteria mapping and symptom scavenging.
var DiagnosticStageIDs = []string{
	"scid_cv_diagnostic",
	"mdd", "bipolar", "gad", "panic", "ptsd", "ocd", "adhd",
	"social_anxiety", "agoraphobia", "specific_phobia",
	"adjustment_disorder", "alcohol_use", "substance_use", "eating_disorder",
}

// IsDiagnosticStage reports whether the id names a disorder-specific stage.
func IsDiagnosticStage(id string) bool {
	for _, known := range DiagnosticStageIDs {
		if id == known {
			return true
		}
	}
	return false
}

// AllSymptoms gathers symptom strings from the payload, descending one level
// into a nested Result.
func (r StageResult) AllSymptoms() []string {
	out := make([]string, 0, len(r.Symptoms)+len(r.KeySymptoms))
	out = append(out, r.Symptoms...)
	out = append(out, r.KeySymptoms...)
	if r.Result != nil {
		out = append(out, r.Result.Symptoms...)
		out = append(out, r.Result.KeySymptoms...)
	}
	return out
}

// CriteriaNotMet reports whether this stage explicitly signalled that
// diagnostic criteria were not met, either as a boolean flag or as a textual
// assessment mentioning both "criteria" and "not".
func (r StageResult) CriteriaNotMet() bool {
	if r.CriteriaMet != nil && !*r.CriteriaMet {
		return true
	}
	assessment := strings.ToLower(r.Assessment)
	if strings.Contains(assessment, "not met") {
		return true
	}
	if strings.Contains(assessment, "criteria") && strings.Contains(assessment, "not") {
		return true
	}
	if r.Result != nil {
		return r.Result.CriteriaNotMet()
	}
	return false
}

// CriteriaExplicitlyMet reports whether this stage marked criteria as met.
func (r StageResult) CriteriaExplicitlyMet() bool {
	if r.CriteriaMet != nil && *r.CriteriaMet {
		return true
	}
	if r.Result != nil {
		return r.Result.CriteriaExplicitlyMet()
	}
	return false
}

// DiagnosisName returns the stage's explicit diagnosis, descending one level
// into a nested Result. Empty when none was recorded.
func (r StageResult) DiagnosisName() string {
	if r.Diagnosis != "" {
		return r.Diagnosis
	}
	if r.Result != nil {
		return r.Result.Diagnosis
	}
	return ""
}

// ConversationTurn is one message of the session transcript.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
