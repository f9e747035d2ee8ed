package models

import "time"

// Symptom is one extracted clinical observation. Records are append-only:
// created once per extraction event and never mutated afterwards. Multiple
// records may share a name and category; dedup happens at the extraction
// layer, which emits at most one symptom per category per response.
type Symptom struct {
	Name       string    `json:"name"`
	Category   Category  `json:"category"`
	Severity   Severity  `json:"severity"`
	Frequency  Frequency `json:"frequency"`
	Duration   Duration  `json:"duration"`
	Triggers   []string  `json:"triggers,omitempty"`
	Impact     Impact    `json:"impact"`
	Context    string    `json:"context,omitempty"`
	Confidence float64   `json:"confidence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Category enumerates symptom domains recognised by the extraction layer.
type Category string

const (
	CategoryMood          Category = "mood"
	CategoryAnxiety       Category = "anxiety"
	CategorySleep         Category = "sleep"
	CategoryAppetite      Category = "appetite"
	CategoryEnergy        Category = "energy"
	CategoryConcentration Category = "concentration"
	CategorySuicidal      Category = "suicidal"
	CategorySelfHarm      Category = "self_harm"
	CategoryPanic         Category = "panic"
	CategoryOCD           Category = "ocd"
	CategoryTrauma        Category = "trauma"
	CategoryADHD          Category = "adhd"
	CategoryOther         Category = "other"
)

// Severity captures reported symptom intensity.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityExtreme  Severity = "extreme"
	SeverityUnknown  Severity = "unknown"
)

// Frequency captures how often a symptom occurs.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyOccasional Frequency = "occasional"
	FrequencyRare       Frequency = "rare"
	FrequencyUnknown    Frequency = "unknown"
)

// Duration buckets how long a symptom has been present.
type Duration string

const (
	DurationWeeks   Duration = "weeks"
	DurationMonths  Duration = "months"
	DurationYears   Duration = "years"
	DurationUnknown Duration = "unknown"
)

// Impact captures reported functional impairment.
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSevere   Impact = "severe"
	ImpactExtreme  Impact = "extreme"
	ImpactUnknown  Impact = "unknown"
)

// SymptomSummary aggregates a session's symptom store.
type SymptomSummary struct {
	TotalSymptoms int              `json:"total_symptoms"`
	ByCategory    map[Category]int `json:"by_category"`
	BySeverity    map[Severity]int `json:"by_severity"`
}

// severityScale and impactScale are the fixed numeric scales used by the
// severity assessment (mild=1 .. extreme=4).
var severityScale = map[Severity]float64{
	SeverityMild:     1,
	SeverityModerate: 2,
	SeveritySevere:   3,
	SeverityExtreme:  4,
}

var impactScale = map[Impact]float64{
	ImpactMinor:    1,
	ImpactModerate: 2,
	ImpactSevere:   3,
	ImpactExtreme:  4,
}

// SeverityScore returns the numeric severity for a symptom, defaulting to
// moderate when the label is unknown.
func (s Symptom) SeverityScore() float64 {
	if v, ok := severityScale[s.Severity]; ok {
		return v
	}
	return 2
}

// ImpactScore returns the numeric impact for a symptom, defaulting to moderate.
func (s Symptom) ImpactScore() float64 {
	if v, ok := impactScale[s.Impact]; ok {
		return v
	}
	return 2
}
