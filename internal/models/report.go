package models

import "time"

// ClusterDomain enumerates the fixed symptom domains used by cluster analysis.
type ClusterDomain string

const (
	ClusterMood       ClusterDomain = "mood_symptoms"
	ClusterAnxiety    ClusterDomain = "anxiety_symptoms"
	ClusterCognitive  ClusterDomain = "cognitive_symptoms"
	ClusterSleep      ClusterDomain = "sleep_symptoms"
	ClusterPhysical   ClusterDomain = "physical_symptoms"
	ClusterBehavioral ClusterDomain = "behavioral_symptoms"
)

// ClusterDomains lists the domains in their fixed iteration order; ties for
// the dominant cluster break in this order.
var ClusterDomains = []ClusterDomain{
	ClusterMood,
	ClusterAnxiety,
	ClusterCognitive,
	ClusterSleep,
	ClusterPhysical,
	ClusterBehavioral,
}

// ClusterAnalysis groups symptoms by domain.
type ClusterAnalysis struct {
	Clusters        map[ClusterDomain][]Symptom `json:"clusters"`
	ClusterCounts   map[ClusterDomain]int       `json:"cluster_counts"`
	DominantCluster ClusterDomain               `json:"dominant_cluster"`
}

// TemporalAnalysis partitions symptoms by onset wording and frequency.
type TemporalAnalysis struct {
	AcuteSymptoms     []Symptom               `json:"acute_symptoms"`
	SubacuteSymptoms  []Symptom               `json:"subacute_symptoms"`
	ChronicSymptoms   []Symptom               `json:"chronic_symptoms"`
	FrequencyPatterns map[Frequency][]Symptom `json:"frequency_patterns"`
}

// SeverityAssessment summarises weighted severity and impact averages.
type SeverityAssessment struct {
	OverallSeverityLevel Severity         `json:"overall_severity_level"`
	AverageSeverityScore float64          `json:"average_severity_score"`
	AverageImpactScore   float64          `json:"average_impact_score"`
	SeverityBreakdown    map[Severity]int `json:"severity_breakdown"`
	TotalSymptoms        int              `json:"total_symptoms"`
}

// Condition enumerates the fixed clinical-correlation buckets.
type Condition string

const (
	ConditionDepression Condition = "depression_indicators"
	ConditionAnxiety    Condition = "anxiety_indicators"
	ConditionPTSD       Condition = "ptsd_indicators"
	ConditionOCD        Condition = "ocd_indicators"
	ConditionBipolar    Condition = "bipolar_indicators"
	ConditionPsychosis  Condition = "psychosis_indicators"
)

// Conditions lists correlation buckets in fixed iteration order.
var Conditions = []Condition{
	ConditionDepression,
	ConditionAnxiety,
	ConditionPTSD,
	ConditionOCD,
	ConditionBipolar,
	ConditionPsychosis,
}

// CorrelationStrength scores one condition bucket.
type CorrelationStrength struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Strength   string  `json:"strength"` // weak <15%, moderate <30%, strong >=30%
}

// CorrelationAnalysis maps symptoms onto condition indicator buckets.
type CorrelationAnalysis struct {
	Correlations        map[Condition][]Symptom           `json:"correlations"`
	Strengths           map[Condition]CorrelationStrength `json:"correlation_strengths"`
	PrimaryCorrelations []Condition                       `json:"primary_correlations"`
}

// ComprehensiveReport is the full derived analytics bundle computed from the
// symptom store. It is recomputed on every request and never persisted.
type ComprehensiveReport struct {
	Symptoms           []Symptom           `json:"symptoms"`
	Summary            SymptomSummary      `json:"summary"`
	Clusters           ClusterAnalysis     `json:"clusters"`
	TemporalAnalysis   TemporalAnalysis    `json:"temporal_analysis"`
	SeverityAssessment SeverityAssessment  `json:"severity_assessment"`
	Correlations       CorrelationAnalysis `json:"clinical_correlations"`
	ConfidenceScore    float64             `json:"confidence_score"`
	Recommendations    []string            `json:"recommendations"`
	GeneratedAt        time.Time           `json:"report_generated_at"`
}

// Clarification carries follow-up questions the extraction layer wants
// answered before arbitration.
type Clarification struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Questions          []string `json:"questions"`
	Reasoning          string   `json:"reasoning"`
	Priority           string   `json:"priority_level"` // low, medium, high
}
