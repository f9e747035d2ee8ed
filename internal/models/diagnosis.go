package models

import "time"

// PrimaryDiagnosis names the leading diagnostic conclusion. A terminal
// arbitration result always carries a non-empty Name by construction.
type PrimaryDiagnosis struct {
	Name        string   `json:"name"`
	Severity    string   `json:"severity"`
	DSM5Code    string   `json:"dsm5_code"`
	CriteriaMet []string `json:"criteria_met"`
	Confidence  float64  `json:"confidence"`
}

// DifferentialDiagnosis is one alternative explanation under consideration.
type DifferentialDiagnosis struct {
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// CriteriaMatch records per-disorder criteria coverage. Without a criteria
// mapper wired in this stays a placeholder: symptom count plus an empty
// criteria list.
type CriteriaMatch struct {
	SymptomsMatched int      `json:"symptoms_matched"`
	CriteriaMet     []string `json:"criteria_met"`
}

// DSM5Mapping summarises which disorders were checked and how they matched.
type DSM5Mapping struct {
	DisordersChecked      []string                 `json:"disorders_checked"`
	CriteriaMatches       map[string]CriteriaMatch `json:"criteria_matches"`
	DiagnosticSuggestions []string                 `json:"diagnostic_suggestions"`
}

// Diagnosis is the arbitration engine's terminal output for a session.
// Computed once per session, recomputed on clarification rounds, persisted
// through the storage collaborator and never mutated afterwards.
type Diagnosis struct {
	Primary          PrimaryDiagnosis        `json:"primary_diagnosis"`
	Differentials    []DifferentialDiagnosis `json:"differential_diagnoses"`
	Confidence       float64                 `json:"confidence"`
	Reasoning        string                  `json:"reasoning"`
	MatchedCriteria  []string                `json:"matched_criteria"`
	DiagnosticNotes  string                  `json:"diagnostic_notes,omitempty"`
	DSM5Mapping      DSM5Mapping             `json:"dsm5_mapping"`
	SymptomsAnalyzed int                     `json:"symptoms_analyzed,omitempty"`
	StagesAnalyzed   []string                `json:"stages_analyzed,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// Outcome labels the three terminal results an arbitration run can produce.
type Outcome string

const (
	OutcomeDiagnosis Outcome = "diagnosis"
	OutcomeReferral  Outcome = "specialist_referral"
	OutcomeFallback  Outcome = "fallback_diagnosis"
)

// ArbitrationResult pairs the terminal outcome with its diagnosis payload.
// Referrals carry no diagnosis; the other two outcomes always do.
type ArbitrationResult struct {
	Outcome   Outcome    `json:"outcome"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
	Message   string     `json:"message"`
}
