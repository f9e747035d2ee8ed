package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/sra"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// maxPromptSymptoms bounds the symptom section of the arbitration prompt.
const maxPromptSymptoms = 50

const arbitrationSystemPrompt = `You are a clinical diagnostic arbiter. Weigh all provided assessment signals and respond with ONLY a JSON object:
{"primary_diagnosis": {"name": "<diagnosis>", "severity": "<mild|moderate|severe>", "dsm5_code": "<code>", "criteria_met": ["..."], "confidence": <0..1>}, "differential_diagnoses": [{"name": "...", "reason": "...", "confidence": <0..1>}], "confidence": <0..1>, "reasoning": "<clinical reasoning>", "matched_criteria": ["..."], "diagnostic_notes": "<notes>"}`

const referralMessage = "Based on your assessment, your presentation would benefit from a specialist's evaluation. We are connecting you with our Specialists who can explore your symptoms in more depth and recommend the right next steps."

// buildArbitrationPrompt renders every signal the session has produced into
// one prompt. Sections with no content are omitted.
func buildArbitrationPrompt(arb arbitrationContext) string {
	var b strings.Builder

	b.WriteString("Arbitrate a final mental health assessment from the signals below.\n")

	if arb.concern != "" {
		b.WriteString("\n## Presenting concern\n")
		b.WriteString(arb.concern)
		b.WriteString("\n")
	}

	if demo, ok := arb.stages[models.StageDemographics]; ok && len(demo.Demographics) > 0 {
		b.WriteString("\n## Demographics\n")
		keys := make([]string, 0, len(demo.Demographics))
		for k := range demo.Demographics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, demo.Demographics[k])
		}
	}

	if screening, ok := arb.stages[models.StageScreening]; ok && len(screening.PositiveScreens) > 0 {
		b.WriteString("\n## Positive screens\n")
		for _, screen := range screening.PositiveScreens {
			b.WriteString("- " + screen + "\n")
		}
	}

	if len(arb.symptoms) > 0 {
		b.WriteString("\n## Recorded symptoms\n")
		limit := len(arb.symptoms)
		if limit > maxPromptSymptoms {
			limit = maxPromptSymptoms
		}
		for _, symptom := range arb.symptoms[:limit] {
			b.WriteString(sra.FormatSymptomLine(symptom) + "\n")
		}
		if len(arb.symptoms) > limit {
			fmt.Fprintf(&b, "(%d further symptoms omitted)\n", len(arb.symptoms)-limit)
		}
	}

	if len(arb.stages) > 0 {
		b.WriteString("\n## Stage results\n")
		for _, id := range stageIDs(arb.stages) {
			stage := arb.stages[id]
			fmt.Fprintf(&b, "- %s:", id)
			if stage.Status != "" {
				fmt.Fprintf(&b, " status=%s", stage.Status)
			}
			if name := stage.DiagnosisName(); name != "" {
				fmt.Fprintf(&b, " diagnosis=%q", name)
			}
			if stage.Assessment != "" {
				fmt.Fprintf(&b, " assessment=%q", utils.Truncate(stage.Assessment, 200))
			}
			if stage.CriteriaMet != nil {
				fmt.Fprintf(&b, " criteria_met=%t", *stage.CriteriaMet)
			}
			b.WriteString("\n")
		}
	}

	if len(arb.mapping.DisordersChecked) > 0 {
		b.WriteString("\n## DSM-5 criteria mapping\n")
		for _, disorder := range arb.mapping.DisordersChecked {
			match := arb.mapping.CriteriaMatches[disorder]
			fmt.Fprintf(&b, "- %s: %d symptoms matched, criteria met: %s\n",
				disorder, match.SymptomsMatched, strings.Join(match.CriteriaMet, ", "))
		}
	}

	b.WriteString("\n## Symptom analysis summary\n")
	fmt.Fprintf(&b, "- total symptoms: %d\n", arb.report.Summary.TotalSymptoms)
	if arb.report.Clusters.DominantCluster != "" {
		fmt.Fprintf(&b, "- dominant cluster: %s\n", arb.report.Clusters.DominantCluster)
	}
	fmt.Fprintf(&b, "- overall severity: %s\n", arb.report.SeverityAssessment.OverallSeverityLevel)
	fmt.Fprintf(&b, "- analysis confidence: %.2f\n", arb.report.ConfidenceScore)
	for _, condition := range arb.report.Correlations.PrimaryCorrelations {
		strength := arb.report.Correlations.Strengths[condition]
		fmt.Fprintf(&b, "- correlation %s: %s (%d symptoms)\n", condition, strength.Strength, strength.Count)
	}

	if len(arb.transcript) > 0 {
		b.WriteString("\n## Recent conversation\n")
		for _, turn := range arb.transcript {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	return b.String()
}

// diagnosisFromObject converts a parsed model response into a Diagnosis,
// repairing a missing primary name from stage payloads when possible. A
// second return of false sends the caller to the fallback ladder.
func diagnosisFromObject(obj map[string]any, arb arbitrationContext) (models.Diagnosis, bool) {
	var diagnosis models.Diagnosis

	if primary, ok := obj["primary_diagnosis"].(map[string]any); ok {
		diagnosis.Primary = models.PrimaryDiagnosis{
			Name:        stringField(primary, "name"),
			Severity:    stringField(primary, "severity"),
			DSM5Code:    stringField(primary, "dsm5_code"),
			CriteriaMet: stringSliceField(primary, "criteria_met"),
			Confidence:  clamp01(floatField(primary, "confidence", 0.6)),
		}
	}

	if diagnosis.Primary.Name == "" {
		// Repair from an explicit stage diagnosis before giving up.
		for _, id := range stageIDs(arb.stages) {
			if name := arb.stages[id].DiagnosisName(); name != "" {
				diagnosis.Primary = models.PrimaryDiagnosis{
					Name:       name,
					Severity:   "moderate",
					Confidence: 0.6,
				}
				diagnosis.DiagnosticNotes = "Primary diagnosis recovered from stage " + id + "."
				break
			}
		}
	}
	if diagnosis.Primary.Name == "" {
		return models.Diagnosis{}, false
	}

	if raw, ok := obj["differential_diagnoses"].([]any); ok {
		for _, entry := range raw {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name := stringField(item, "name")
			if name == "" {
				continue
			}
			diagnosis.Differentials = append(diagnosis.Differentials, models.DifferentialDiagnosis{
				Name:       name,
				Reason:     stringField(item, "reason"),
				Confidence: clamp01(floatField(item, "confidence", 0.3)),
			})
		}
	}

	diagnosis.Confidence = clamp01(floatField(obj, "confidence", diagnosis.Primary.Confidence))
	diagnosis.Reasoning = stringField(obj, "reasoning")
	diagnosis.MatchedCriteria = stringSliceField(obj, "matched_criteria")
	if notes := stringField(obj, "diagnostic_notes"); notes != "" {
		diagnosis.DiagnosticNotes = notes
	}
	return diagnosis, true
}

// userMessage phrases the terminal diagnosis for the patient, calibrated to
// arbitration confidence.
func userMessage(diagnosis models.Diagnosis) string {
	var b strings.Builder

	switch {
	case diagnosis.Confidence >= 0.8:
		fmt.Fprintf(&b, "Your assessment is complete. The analysis indicates %s with high confidence.", diagnosis.Primary.Name)
	case diagnosis.Confidence >= 0.6:
		fmt.Fprintf(&b, "Your assessment is complete. The analysis indicates %s with good confidence.", diagnosis.Primary.Name)
	default:
		fmt.Fprintf(&b, "Your assessment is complete. The preliminary analysis suggests %s; a clinician should confirm this finding.", diagnosis.Primary.Name)
	}

	if diagnosis.Reasoning != "" {
		b.WriteString(" ")
		b.WriteString(utils.Truncate(diagnosis.Reasoning, 300))
	}
	return b.String()
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return fallback
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
