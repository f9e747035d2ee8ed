package sra

import (
	"math"
	"reflect"
	"testing"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
)

func seedStore(entries ...models.Symptom) *symptoms.Store {
	store := symptoms.NewStore()
	store.AddAll(entries)
	return store
}

func TestBuildReportEmptyStore(t *testing.T) {
	report := BuildReport(symptoms.NewStore())

	if report.ConfidenceScore != 0 {
		t.Fatalf("confidence = %v, want 0 for empty store", report.ConfidenceScore)
	}
	if report.SeverityAssessment.OverallSeverityLevel != models.SeverityUnknown {
		t.Fatalf("severity = %s, want unknown", report.SeverityAssessment.OverallSeverityLevel)
	}
	if report.Clusters.DominantCluster != "" {
		t.Fatalf("dominant cluster = %s, want empty", report.Clusters.DominantCluster)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0] != "Limited symptom data - consider gathering more information" {
		t.Fatalf("unexpected recommendations: %v", report.Recommendations)
	}
}

func TestBuildReportIdempotent(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "feeling sad", Category: models.CategoryMood, Severity: models.SeverityModerate, Confidence: 0.7},
		models.Symptom{Name: "constant worry", Category: models.CategoryAnxiety, Severity: models.SeverityMild, Confidence: 0.7},
		models.Symptom{Name: "insomnia", Category: models.CategorySleep, Duration: models.DurationMonths, Confidence: 0.8},
	)

	first := BuildReport(store)
	second := BuildReport(store)

	first.GeneratedAt = second.GeneratedAt
	if !reflect.DeepEqual(first, second) {
		t.Fatal("reports differ across identical builds")
	}
}

func TestClusterAnalysis(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "sadness", Category: models.CategoryMood},
		models.Symptom{Name: "irritability", Category: models.CategoryMood},
		models.Symptom{Name: "worry", Category: models.CategoryAnxiety},
		models.Symptom{Name: "panic attacks", Category: models.CategoryPanic},
		models.Symptom{Name: "flashbacks", Category: models.CategoryTrauma},
	)

	report := BuildReport(store)
	clusters := report.Clusters

	if clusters.ClusterCounts[models.ClusterMood] != 2 {
		t.Fatalf("mood count = %d, want 2", clusters.ClusterCounts[models.ClusterMood])
	}
	// Panic folds into the anxiety cluster.
	if clusters.ClusterCounts[models.ClusterAnxiety] != 2 {
		t.Fatalf("anxiety count = %d, want 2", clusters.ClusterCounts[models.ClusterAnxiety])
	}
	// Mood wins the tie through fixed domain order.
	if clusters.DominantCluster != models.ClusterMood {
		t.Fatalf("dominant = %s, want mood", clusters.DominantCluster)
	}
}

func TestTemporalAnalysis(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "worry", Category: models.CategoryAnxiety, Duration: models.DurationWeeks, Frequency: models.FrequencyDaily},
		models.Symptom{Name: "low mood", Category: models.CategoryMood, Duration: models.DurationMonths},
		models.Symptom{Name: "insomnia", Category: models.CategorySleep, Duration: models.DurationYears, Frequency: models.FrequencyDaily},
	)

	temporal := BuildReport(store).TemporalAnalysis
	if len(temporal.AcuteSymptoms) != 1 || len(temporal.SubacuteSymptoms) != 1 || len(temporal.ChronicSymptoms) != 1 {
		t.Fatalf("unexpected temporal split: %d/%d/%d",
			len(temporal.AcuteSymptoms), len(temporal.SubacuteSymptoms), len(temporal.ChronicSymptoms))
	}
	if len(temporal.FrequencyPatterns[models.FrequencyDaily]) != 2 {
		t.Fatalf("daily pattern = %d, want 2", len(temporal.FrequencyPatterns[models.FrequencyDaily]))
	}
}

func TestSeverityAssessmentThresholds(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "a", Category: models.CategoryMood, Severity: models.SeveritySevere},
		models.Symptom{Name: "b", Category: models.CategoryMood, Severity: models.SeveritySevere},
		models.Symptom{Name: "c", Category: models.CategoryMood, Severity: models.SeverityModerate},
	)

	assessment := BuildReport(store).SeverityAssessment
	// (3 + 3 + 2) / 3 = 2.67 lands in the severe band.
	if assessment.OverallSeverityLevel != models.SeveritySevere {
		t.Fatalf("overall = %s, want severe", assessment.OverallSeverityLevel)
	}
	if assessment.SeverityBreakdown[models.SeveritySevere] != 2 {
		t.Fatalf("severe breakdown = %d, want 2", assessment.SeverityBreakdown[models.SeveritySevere])
	}
}

func TestCorrelationAnalysis(t *testing.T) {
	store := seedStore(
		models.Symptom{Name: "feeling sad and hopeless", Category: models.CategoryMood},
		models.Symptom{Name: "feeling worthless", Category: models.CategoryMood},
		models.Symptom{Name: "constant worry", Category: models.CategoryAnxiety},
		models.Symptom{Name: "sleep trouble", Category: models.CategorySleep},
	)

	correlations := BuildReport(store).Correlations
	depression := correlations.Strengths[models.ConditionDepression]
	if depression.Count != 2 {
		t.Fatalf("depression count = %d, want 2", depression.Count)
	}
	if depression.Strength != "strong" {
		t.Fatalf("depression strength = %s, want strong (50%%)", depression.Strength)
	}
	if len(correlations.PrimaryCorrelations) == 0 || correlations.PrimaryCorrelations[0] != models.ConditionDepression {
		t.Fatalf("unexpected primary correlations: %v", correlations.PrimaryCorrelations)
	}
}

func TestConfidenceScoreBounds(t *testing.T) {
	// A large, diverse, high-confidence store must still score <= 1.
	store := symptoms.NewStore()
	categories := []models.Category{
		models.CategoryMood, models.CategoryAnxiety, models.CategorySleep,
		models.CategoryEnergy, models.CategoryPanic, models.CategoryTrauma,
	}
	for i := 0; i < 12; i++ {
		store.Add(models.Symptom{
			Name:       "symptom",
			Category:   categories[i%len(categories)],
			Confidence: 1.0,
		})
	}

	score := BuildReport(store).ConfidenceScore
	if score <= 0 || score > 1 {
		t.Fatalf("confidence = %v, want in (0, 1]", score)
	}

	single := BuildReport(seedStore(models.Symptom{Name: "one", Category: models.CategoryMood, Confidence: 0.7}))
	if single.ConfidenceScore <= 0 || single.ConfidenceScore > 1 {
		t.Fatalf("confidence = %v, want in (0, 1]", single.ConfidenceScore)
	}
}

func TestConfidenceScoreDiversityTermCapped(t *testing.T) {
	// Two symptoms across two categories: distinct/(0.5n) = 2, capped at 1.
	store := seedStore(
		models.Symptom{Name: "worry", Category: models.CategoryAnxiety, Confidence: 0.7},
		models.Symptom{Name: "low mood", Category: models.CategoryMood, Confidence: 0.7},
	)

	score := BuildReport(store).ConfidenceScore
	want := 0.4*0.2 + 0.4*0.7 + 0.2*1.0
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", score, want)
	}
}

func TestRecommendationsExtensiveAndChronic(t *testing.T) {
	store := symptoms.NewStore()
	for i := 0; i < 16; i++ {
		store.Add(models.Symptom{Name: "s", Category: models.CategoryMood, Duration: models.DurationYears})
	}

	report := BuildReport(store)
	var sawExtensive, sawChronic bool
	for _, rec := range report.Recommendations {
		switch rec {
		case "Extensive symptom presentation - prioritize most severe symptoms":
			sawExtensive = true
		case "Primarily chronic symptoms - consider long-term conditions":
			sawChronic = true
		}
	}
	if !sawExtensive || !sawChronic {
		t.Fatalf("missing recommendations: %v", report.Recommendations)
	}
}

func TestFormatSymptomLine(t *testing.T) {
	full := FormatSymptomLine(models.Symptom{
		Name:      "insomnia",
		Severity:  models.SeverityModerate,
		Frequency: models.FrequencyDaily,
		Duration:  models.DurationMonths,
	})
	if full != "- insomnia (Severity: moderate) (Frequency: daily) (Duration: months)" {
		t.Fatalf("unexpected line: %q", full)
	}

	bare := FormatSymptomLine(models.Symptom{Name: "worry", Severity: models.SeverityUnknown})
	if bare != "- worry" {
		t.Fatalf("unexpected line: %q", bare)
	}
}
