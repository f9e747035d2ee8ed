// Package sra implements symptom recognition and analysis: extracting
// symptoms from conversational answers, aggregating them into a
// comprehensive report, and deciding when clarification is needed.
package sra

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindwell-health/assessment-engine/internal/llm"
	"github.com/mindwell-health/assessment-engine/internal/metrics"
	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// CompletionClient is the slice of the completion client the engine needs.
type CompletionClient interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
	HasLiveProvider() bool
}

// Engine extracts symptoms from patient answers. A rule-based keyword pass
// always runs; when a hosted completion provider is available, a model pass
// runs too and its results replace the rule-based ones entirely.
type Engine struct {
	completions CompletionClient
	logger      *slog.Logger
}

// NewEngine wires an extraction engine.
func NewEngine(completions CompletionClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{completions: completions, logger: logger}
}

// ProcessResponse extracts symptoms from one question/answer exchange and
// records them in the session's store. It returns the recorded symptoms.
// Extraction never fails: a model error just leaves the rule-based results.
func (e *Engine) ProcessResponse(ctx context.Context, store *symptoms.Store, question, answer string) []models.Symptom {
	contextTag := "Question: " + utils.Truncate(question, 100)

	extracted := e.extractWithRules(answer, contextTag)

	if e.completions != nil && e.completions.HasLiveProvider() {
		modelExtracted, err := e.extractWithModel(ctx, question, answer, contextTag)
		switch {
		case err != nil:
			e.logger.Warn("model extraction failed, keeping rule-based results", "error", err)
		case len(modelExtracted) > 0:
			extracted = modelExtracted
		}
	}

	for _, symptom := range extracted {
		store.Add(symptom)
		metrics.ObserveSymptom(string(symptom.Category))
	}
	return extracted
}

// extractWithRules scans the answer against the category keyword tables,
// emitting at most one symptom per category.
func (e *Engine) extractWithRules(answer, contextTag string) []models.Symptom {
	text := strings.ToLower(answer)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []models.Symptom
	for _, category := range categoryOrder {
		if !utils.ContainsAny(text, categoryKeywords[category]...) {
			continue
		}
		out = append(out, models.Symptom{
			Name:       categoryDisplayNames[category],
			Category:   category,
			Severity:   detectSeverity(text),
			Frequency:  detectFrequency(text),
			Duration:   detectDuration(text),
			Context:    contextTag,
			Confidence: 0.7,
		})
	}
	return out
}

func detectSeverity(text string) models.Severity {
	for _, rung := range severityLadder {
		if utils.ContainsAny(text, rung.keywords...) {
			return rung.level
		}
	}
	return models.SeverityUnknown
}

func detectFrequency(text string) models.Frequency {
	for _, rung := range frequencyLadder {
		if utils.ContainsAny(text, rung.keywords...) {
			return rung.level
		}
	}
	return models.FrequencyUnknown
}

func detectDuration(text string) models.Duration {
	switch {
	case durationYearsRe.MatchString(text):
		return models.DurationYears
	case durationMonthsRe.MatchString(text):
		return models.DurationMonths
	case durationWeeksRe.MatchString(text):
		return models.DurationWeeks
	case strings.Contains(text, "year"):
		return models.DurationYears
	case strings.Contains(text, "month"):
		return models.DurationMonths
	case strings.Contains(text, "week"):
		return models.DurationWeeks
	}
	return models.DurationUnknown
}

const extractionSystemPrompt = `You are a clinical symptom extraction assistant. Extract mental health symptoms from the patient's answer. Respond with ONLY a JSON array, no prose. Each element: {"name": "<specific symptom>", "category": "<one of: mood, anxiety, sleep, appetite, energy, concentration, suicidal, self_harm, panic, ocd, trauma, adhd, other>", "severity": "<mild|moderate|severe|extreme or empty>", "frequency": "<daily|weekly|occasional|rare or empty>", "duration": "<weeks|months|years or empty>"}. Return [] when no symptoms are present.`

// extractWithModel asks the completion chain to pull structured symptoms out
// of the exchange. Low temperature keeps the output stable across retries.
func (e *Engine) extractWithModel(ctx context.Context, question, answer, contextTag string) ([]models.Symptom, error) {
	prompt := fmt.Sprintf("Question asked: %s\n\nPatient answer: %s", question, answer)

	resp, err := e.completions.Generate(ctx, llm.Request{
		Prompt:      prompt,
		System:      extractionSystemPrompt,
		MaxTokens:   500,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	if resp.Provider == llm.RuleBasedName {
		// The terminal provider synthesises diagnoses, not symptom arrays.
		return nil, nil
	}

	raw := utils.ExtractArray(resp.Content)
	out := make([]models.Symptom, 0, len(raw))
	for _, item := range raw {
		name := stringField(item, "name")
		if name == "" {
			name = stringField(item, "symptom")
		}
		if name == "" {
			continue
		}
		symptom := models.Symptom{
			Name:       name,
			Category:   ParseCategory(strings.ToLower(stringField(item, "category"))),
			Severity:   models.Severity(strings.ToLower(stringField(item, "severity"))),
			Frequency:  models.Frequency(strings.ToLower(stringField(item, "frequency"))),
			Duration:   models.Duration(strings.ToLower(stringField(item, "duration"))),
			Context:    contextTag,
			Confidence: floatField(item, "confidence", 0.7),
		}
		symptom.Severity = normalizeSeverity(symptom.Severity)
		symptom.Frequency = normalizeFrequency(symptom.Frequency)
		symptom.Duration = normalizeDuration(symptom.Duration)
		out = append(out, symptom)
	}
	return out, nil
}

func normalizeSeverity(s models.Severity) models.Severity {
	switch s {
	case models.SeverityMild, models.SeverityModerate, models.SeveritySevere, models.SeverityExtreme:
		return s
	}
	return models.SeverityUnknown
}

func normalizeFrequency(f models.Frequency) models.Frequency {
	switch f {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyOccasional, models.FrequencyRare:
		return f
	}
	return models.FrequencyUnknown
}

func normalizeDuration(d models.Duration) models.Duration {
	switch d {
	case models.DurationWeeks, models.DurationMonths, models.DurationYears:
		return d
	}
	return models.DurationUnknown
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
