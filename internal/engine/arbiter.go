// Package engine implements diagnostic arbitration: it weighs every signal a
// session has produced (stage results, the symptom record, the derived
// analytics report, the transcript) and always lands on a terminal diagnosis,
// degrading through deterministic tiers when the completion chain cannot help.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mindwell-health/assessment-engine/internal/llm"
	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/sra"
	"github.com/mindwell-health/assessment-engine/internal/store"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// maxTranscriptTurns bounds how much conversation feeds the arbitration prompt.
const maxTranscriptTurns = 10

// complexityMarkers in the presenting concern push borderline cases toward a
// specialist referral.
var complexityMarkers = []string{"multiple", "complex", "unclear", "confusing", "various", "different"}

// CompletionClient is the slice of the completion client the arbiter needs.
type CompletionClient interface {
	ExtractStructured(ctx context.Context, req llm.Request) (map[string]any, error)
	HasLiveProvider() bool
}

// CriteriaMapper maps stage results and symptoms onto DSM-5 criteria. The
// built-in mapper only counts matched symptoms per diagnostic stage; a real
// criteria engine can be plugged in instead.
type CriteriaMapper interface {
	MapCriteria(stages map[string]models.StageResult, recorded []models.Symptom) models.DSM5Mapping
}

// Arbiter performs diagnostic arbitration for one deployment. It is
// stateless across sessions; all per-session state lives in the store and
// the symptom log.
type Arbiter struct {
	completions CompletionClient
	sessions    store.Store
	criteria    CriteriaMapper
	logger      *slog.Logger
}

// NewArbiter wires an arbiter. A nil criteria mapper selects the built-in
// symptom-count placeholder.
func NewArbiter(completions CompletionClient, sessions store.Store, criteria CriteriaMapper, logger *slog.Logger) *Arbiter {
	if criteria == nil {
		criteria = placeholderCriteriaMapper{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{
		completions: completions,
		sessions:    sessions,
		criteria:    criteria,
		logger:      logger,
	}
}

// Analyze arbitrates a session into a terminal result. It never returns a nil
// diagnosis: every failure mode lands on a deterministic tier instead.
func (a *Arbiter) Analyze(ctx context.Context, sessionID string, symptomLog *symptoms.Store) models.ArbitrationResult {
	stages, err := a.sessions.StageResults(ctx, sessionID)
	if err != nil {
		a.logger.Warn("stage results unavailable, arbitrating without them",
			"session", sessionID, "error", utils.NewAppError("engine.Analyze", "load stages", utils.ErrCollaboratorUnavailable))
		stages = map[string]models.StageResult{}
	}

	transcript, err := a.sessions.ConversationHistory(ctx, sessionID)
	if err != nil {
		a.logger.Warn("transcript unavailable", "session", sessionID, "error", err)
		transcript = nil
	}
	if len(transcript) > maxTranscriptTurns {
		transcript = transcript[len(transcript)-maxTranscriptTurns:]
	}

	report := sra.BuildReport(symptomLog)
	recorded := gatherSymptoms(symptomLog, stages)
	enriched := enrichSymptoms(recorded, report)

	concern := presentingConcern(stages)
	mapping := a.criteria.MapCriteria(stages, recorded)

	diagnosis, outcome := a.arbitrate(ctx, arbitrationContext{
		sessionID:  sessionID,
		stages:     stages,
		symptoms:   enriched,
		report:     report,
		mapping:    mapping,
		concern:    concern,
		transcript: transcript,
	})
	if diagnosis == nil {
		return models.ArbitrationResult{
			Outcome: models.OutcomeReferral,
			Message: referralMessage,
		}
	}

	diagnosis.DSM5Mapping = mapping
	if diagnosis.MatchedCriteria == nil {
		diagnosis.MatchedCriteria = []string{}
	}
	diagnosis.SymptomsAnalyzed = len(enriched)
	diagnosis.StagesAnalyzed = stageIDs(stages)
	diagnosis.CreatedAt = time.Now().UTC()

	return models.ArbitrationResult{
		Outcome:   outcome,
		Diagnosis: diagnosis,
		Message:   userMessage(*diagnosis),
	}
}

func stageIDs(stages map[string]models.StageResult) []string {
	out := make([]string, 0, len(stages))
	for id := range stages {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// arbitrationContext carries everything one arbitration run works from.
type arbitrationContext struct {
	sessionID  string
	stages     map[string]models.StageResult
	symptoms   []models.Symptom
	report     models.ComprehensiveReport
	mapping    models.DSM5Mapping
	concern    string
	transcript []models.ConversationTurn
}

// arbitrate picks the arbitration tier: model-backed when a hosted provider
// exists and the session recorded symptoms, deterministic when no provider is
// configured. A nil diagnosis means the no-diagnosis path chose a specialist
// referral instead.
func (a *Arbiter) arbitrate(ctx context.Context, arb arbitrationContext) (*models.Diagnosis, models.Outcome) {
	if a.completions == nil || !a.completions.HasLiveProvider() {
		diagnosis := deterministicDiagnosis(arb)
		return &diagnosis, models.OutcomeFallback
	}

	// With no symptoms there is nothing for the model to reason over.
	if len(arb.symptoms) == 0 {
		return a.resolveNoDiagnosis(arb)
	}

	obj, err := a.completions.ExtractStructured(ctx, llm.Request{
		Prompt: buildArbitrationPrompt(arb),
		System: arbitrationSystemPrompt,
	})
	if err != nil {
		a.logger.Warn("model arbitration failed, deciding referral or fallback",
			"session", arb.sessionID, "error", err)
		return a.resolveNoDiagnosis(arb)
	}

	diagnosis, ok := diagnosisFromObject(obj, arb)
	if !ok {
		a.logger.Warn("model arbitration unusable, deciding referral or fallback", "session", arb.sessionID)
		return a.resolveNoDiagnosis(arb)
	}
	return &diagnosis, models.OutcomeDiagnosis
}

// resolveNoDiagnosis handles the no-diagnosis signal: a specialist referral
// when the referral criteria hold, the fallback ladder otherwise.
func (a *Arbiter) resolveNoDiagnosis(arb arbitrationContext) (*models.Diagnosis, models.Outcome) {
	if shouldRefer(arb.symptoms, arb.stages, arb.concern) {
		return nil, models.OutcomeReferral
	}
	diagnosis := fallbackDiagnosis(arb)
	return &diagnosis, models.OutcomeFallback
}

// gatherSymptoms prefers the recognition engine's record; when it is empty it
// scavenges stage payloads for symptom strings and positive screens.
func gatherSymptoms(symptomLog *symptoms.Store, stages map[string]models.StageResult) []models.Symptom {
	recorded := symptomLog.Export()
	if len(recorded) > 0 {
		return recorded
	}

	seen := make(map[string]struct{})
	var scavenged []models.Symptom
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		scavenged = append(scavenged, models.Symptom{
			Name:       name,
			Category:   models.CategoryOther,
			Severity:   models.SeverityUnknown,
			Frequency:  models.FrequencyUnknown,
			Duration:   models.DurationUnknown,
			Impact:     models.ImpactUnknown,
			Confidence: 0.5,
		})
	}

	for _, stage := range stages {
		for _, name := range stage.AllSymptoms() {
			add(name)
		}
		for _, screen := range stage.PositiveScreens {
			add("Positive screen: " + screen)
		}
	}
	return scavenged
}

// enrichSymptoms annotates symptoms with their cluster membership, the
// session's overall severity, and the correlation buckets they participate in
// so the arbitration prompt sees them in context. The inputs are not mutated.
func enrichSymptoms(recorded []models.Symptom, report models.ComprehensiveReport) []models.Symptom {
	if len(recorded) == 0 {
		return recorded
	}

	memberships := make(map[string]models.ClusterDomain)
	for domain, members := range report.Clusters.Clusters {
		for _, member := range members {
			memberships[strings.ToLower(member.Name)] = domain
		}
	}

	correlations := make(map[string][]string)
	for _, condition := range models.Conditions {
		for _, member := range report.Correlations.Correlations[condition] {
			key := strings.ToLower(member.Name)
			correlations[key] = append(correlations[key], string(condition))
		}
	}

	out := make([]models.Symptom, len(recorded))
	copy(out, recorded)
	for i := range out {
		key := strings.ToLower(out[i].Name)

		var notes []string
		if domain, ok := memberships[key]; ok {
			notes = append(notes, "cluster="+string(domain))
		}
		if report.SeverityAssessment.OverallSeverityLevel != "" && report.SeverityAssessment.OverallSeverityLevel != models.SeverityUnknown {
			notes = append(notes, "session_severity="+string(report.SeverityAssessment.OverallSeverityLevel))
		}
		if conditions := correlations[key]; len(conditions) > 0 {
			notes = append(notes, "correlations="+strings.Join(conditions, ","))
		}
		if len(notes) > 0 {
			if out[i].Context != "" {
				out[i].Context += "; "
			}
			out[i].Context += strings.Join(notes, "; ")
		}
	}
	return out
}

func presentingConcern(stages map[string]models.StageResult) string {
	if stage, ok := stages[models.StagePresentingConcern]; ok {
		if stage.Concern != "" {
			return stage.Concern
		}
		if stage.Result != nil {
			return stage.Result.Concern
		}
	}
	return ""
}

// shouldRefer decides the specialist referral once arbitration has produced
// no diagnosis: symptoms are present, at least one diagnostic stage
// explicitly failed its criteria, and the picture is complex (three or more
// symptoms, or complexity wording in the concern).
func shouldRefer(recorded []models.Symptom, stages map[string]models.StageResult, concern string) bool {
	if len(recorded) == 0 {
		return false
	}

	criteriaNotMet := false
	for id, stage := range stages {
		if !models.IsDiagnosticStage(id) {
			continue
		}
		if stage.CriteriaNotMet() {
			criteriaNotMet = true
			break
		}
	}
	if !criteriaNotMet {
		return false
	}

	if len(recorded) >= 3 {
		return true
	}
	return utils.ContainsAny(strings.ToLower(concern), complexityMarkers...)
}

// placeholderCriteriaMapper counts matched symptoms per diagnostic stage
// without asserting any criteria. It exists so arbitration prompts always
// carry a mapping section.
type placeholderCriteriaMapper struct{}

func (placeholderCriteriaMapper) MapCriteria(stages map[string]models.StageResult, recorded []models.Symptom) models.DSM5Mapping {
	mapping := models.DSM5Mapping{
		CriteriaMatches: make(map[string]models.CriteriaMatch),
	}
	for _, id := range models.DiagnosticStageIDs {
		stage, ok := stages[id]
		if !ok {
			continue
		}
		mapping.DisordersChecked = append(mapping.DisordersChecked, id)
		mapping.CriteriaMatches[id] = models.CriteriaMatch{
			SymptomsMatched: len(recorded),
			CriteriaMet:     []string{},
		}
		if name := stage.DiagnosisName(); name != "" {
			mapping.DiagnosticSuggestions = append(mapping.DiagnosticSuggestions, name)
		}
	}
	return mapping
}
