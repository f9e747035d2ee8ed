package sra

import (
	"fmt"
	"strings"
	"time"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// clusterByCategory maps symptom categories onto analysis domains. Categories
// without a clinical cluster (trauma, ocd, other) stay unclustered; the
// correlation analysis covers them instead.
var clusterByCategory = map[models.Category]models.ClusterDomain{
	models.CategoryMood:          models.ClusterMood,
	models.CategoryAnxiety:       models.ClusterAnxiety,
	models.CategoryPanic:         models.ClusterAnxiety,
	models.CategoryConcentration: models.ClusterCognitive,
	models.CategoryADHD:          models.ClusterCognitive,
	models.CategorySleep:         models.ClusterSleep,
	models.CategoryEnergy:        models.ClusterPhysical,
	models.CategoryAppetite:      models.ClusterPhysical,
	models.CategorySuicidal:      models.ClusterBehavioral,
	models.CategorySelfHarm:      models.ClusterBehavioral,
}

// conditionIndicators are matched against lower-cased symptom names.
var conditionIndicators = map[models.Condition][]string{
	models.ConditionDepression: {"sad", "depressed", "hopeless", "worthless", "suicidal"},
	models.ConditionAnxiety:    {"anxious", "panic", "worry", "fear", "nervous"},
	models.ConditionPTSD:       {"flashback", "nightmare", "trauma", "trigger", "avoidance"},
	models.ConditionOCD:        {"obsession", "compulsion", "ritual", "intrusive", "checking"},
	models.ConditionBipolar:    {"manic", "euphoric", "irritable", "hyperactive", "elevated"},
	models.ConditionPsychosis:  {"hallucination", "delusion", "paranoia", "disorganized"},
}

// BuildReport computes the full analytics bundle from the session's symptom
// store. The computation is pure: the same store contents always produce the
// same report (modulo the generation timestamp).
func BuildReport(store *symptoms.Store) models.ComprehensiveReport {
	recorded := store.Export()

	report := models.ComprehensiveReport{
		Symptoms:           recorded,
		Summary:            store.Summary(),
		Clusters:           analyzeClusters(recorded),
		TemporalAnalysis:   analyzeTemporal(recorded),
		SeverityAssessment: assessSeverity(recorded),
		Correlations:       analyzeCorrelations(recorded),
		ConfidenceScore:    confidenceScore(recorded),
		GeneratedAt:        time.Now().UTC(),
	}
	report.Recommendations = recommendations(recorded, report.TemporalAnalysis)
	return report
}

func analyzeClusters(recorded []models.Symptom) models.ClusterAnalysis {
	analysis := models.ClusterAnalysis{
		Clusters:      make(map[models.ClusterDomain][]models.Symptom),
		ClusterCounts: make(map[models.ClusterDomain]int),
	}
	for _, symptom := range recorded {
		domain, ok := clusterByCategory[symptom.Category]
		if !ok {
			continue
		}
		analysis.Clusters[domain] = append(analysis.Clusters[domain], symptom)
		analysis.ClusterCounts[domain]++
	}

	best := 0
	for _, domain := range models.ClusterDomains {
		if count := analysis.ClusterCounts[domain]; count > best {
			best = count
			analysis.DominantCluster = domain
		}
	}
	return analysis
}

func analyzeTemporal(recorded []models.Symptom) models.TemporalAnalysis {
	analysis := models.TemporalAnalysis{
		FrequencyPatterns: make(map[models.Frequency][]models.Symptom),
	}
	for _, symptom := range recorded {
		switch symptom.Duration {
		case models.DurationWeeks:
			analysis.AcuteSymptoms = append(analysis.AcuteSymptoms, symptom)
		case models.DurationMonths:
			analysis.SubacuteSymptoms = append(analysis.SubacuteSymptoms, symptom)
		case models.DurationYears:
			analysis.ChronicSymptoms = append(analysis.ChronicSymptoms, symptom)
		}
		if symptom.Frequency != models.FrequencyUnknown && symptom.Frequency != "" {
			analysis.FrequencyPatterns[symptom.Frequency] = append(analysis.FrequencyPatterns[symptom.Frequency], symptom)
		}
	}
	return analysis
}

func assessSeverity(recorded []models.Symptom) models.SeverityAssessment {
	assessment := models.SeverityAssessment{
		SeverityBreakdown: make(map[models.Severity]int),
		TotalSymptoms:     len(recorded),
	}
	if len(recorded) == 0 {
		assessment.OverallSeverityLevel = models.SeverityUnknown
		return assessment
	}

	var severityTotal, impactTotal float64
	for _, symptom := range recorded {
		severityTotal += symptom.SeverityScore()
		impactTotal += symptom.ImpactScore()
		assessment.SeverityBreakdown[symptom.Severity]++
	}
	assessment.AverageSeverityScore = severityTotal / float64(len(recorded))
	assessment.AverageImpactScore = impactTotal / float64(len(recorded))

	switch {
	case assessment.AverageSeverityScore >= 3.5:
		assessment.OverallSeverityLevel = models.SeverityExtreme
	case assessment.AverageSeverityScore >= 2.5:
		assessment.OverallSeverityLevel = models.SeveritySevere
	case assessment.AverageSeverityScore >= 1.5:
		assessment.OverallSeverityLevel = models.SeverityModerate
	default:
		assessment.OverallSeverityLevel = models.SeverityMild
	}
	return assessment
}

func analyzeCorrelations(recorded []models.Symptom) models.CorrelationAnalysis {
	analysis := models.CorrelationAnalysis{
		Correlations: make(map[models.Condition][]models.Symptom),
		Strengths:    make(map[models.Condition]models.CorrelationStrength),
	}
	if len(recorded) == 0 {
		return analysis
	}

	for _, symptom := range recorded {
		name := strings.ToLower(symptom.Name)
		for _, condition := range models.Conditions {
			if utils.ContainsAny(name, conditionIndicators[condition]...) {
				analysis.Correlations[condition] = append(analysis.Correlations[condition], symptom)
			}
		}
	}

	for _, condition := range models.Conditions {
		matched := analysis.Correlations[condition]
		if len(matched) == 0 {
			continue
		}
		percentage := float64(len(matched)) / float64(len(recorded))
		strength := "weak"
		if percentage > 0.3 {
			strength = "strong"
		} else if percentage > 0.15 {
			strength = "moderate"
		}
		analysis.Strengths[condition] = models.CorrelationStrength{
			Count:      len(matched),
			Percentage: percentage,
			Strength:   strength,
		}
	}

	// Top three buckets by match count; ties break in fixed condition order.
	remaining := append([]models.Condition(nil), models.Conditions...)
	for len(analysis.PrimaryCorrelations) < 3 {
		bestIdx := -1
		bestCount := 0
		for i, condition := range remaining {
			if condition == "" {
				continue
			}
			if count := len(analysis.Correlations[condition]); count > bestCount {
				bestCount = count
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		analysis.PrimaryCorrelations = append(analysis.PrimaryCorrelations, remaining[bestIdx])
		remaining[bestIdx] = ""
	}
	return analysis
}

// confidenceScore blends sample size, extraction confidence, and category
// diversity into a [0, 1] score. Empty stores score zero.
func confidenceScore(recorded []models.Symptom) float64 {
	if len(recorded) == 0 {
		return 0
	}

	n := float64(len(recorded))

	volume := n / 10
	if volume > 1 {
		volume = 1
	}

	var confidenceTotal float64
	categories := make(map[models.Category]struct{})
	for _, symptom := range recorded {
		confidenceTotal += symptom.Confidence
		categories[symptom.Category] = struct{}{}
	}
	meanConfidence := confidenceTotal / n

	denominator := n * 0.5
	if denominator < 1 {
		denominator = 1
	}
	diversity := float64(len(categories)) / denominator
	if diversity > 1 {
		diversity = 1
	}

	score := 0.4*volume + 0.4*meanConfidence + 0.2*diversity
	if score > 1 {
		score = 1
	}
	return score
}

func recommendations(recorded []models.Symptom, temporal models.TemporalAnalysis) []string {
	var out []string
	total := len(recorded)

	if total < 3 {
		out = append(out, "Limited symptom data - consider gathering more information")
	}
	if total > 15 {
		out = append(out, "Extensive symptom presentation - prioritize most severe symptoms")
	}
	if total > 0 {
		acuteShare := float64(len(temporal.AcuteSymptoms)) / float64(total)
		chronicShare := float64(len(temporal.ChronicSymptoms)) / float64(total)
		if acuteShare > 0.7 {
			out = append(out, "Primarily acute symptoms - consider recent onset conditions")
		}
		if chronicShare > 0.5 {
			out = append(out, "Primarily chronic symptoms - consider long-term conditions")
		}
	}
	return out
}

// FormatSymptomLine renders one symptom for inclusion in arbitration prompts.
func FormatSymptomLine(symptom models.Symptom) string {
	line := "- " + symptom.Name
	if symptom.Severity != models.SeverityUnknown && symptom.Severity != "" {
		line += fmt.Sprintf(" (Severity: %s)", symptom.Severity)
	}
	if symptom.Frequency != models.FrequencyUnknown && symptom.Frequency != "" {
		line += fmt.Sprintf(" (Frequency: %s)", symptom.Frequency)
	}
	if symptom.Duration != models.DurationUnknown && symptom.Duration != "" {
		line += fmt.Sprintf(" (Duration: %s)", symptom.Duration)
	}
	return line
}
