// Package session drives the assessment lifecycle around the arbitration
// engine: intake, clarification rounds, and the terminal result. A session
// always completes; failures degrade the result instead of stranding the
// patient mid-assessment.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell-health/assessment-engine/internal/engine"
	"github.com/mindwell-health/assessment-engine/internal/metrics"
	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/sra"
	"github.com/mindwell-health/assessment-engine/internal/store"
	"github.com/mindwell-health/assessment-engine/internal/symptoms"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// Session states.
const (
	StateAnalyzing            = "analyzing"
	StateNeedsMoreInfo        = "needs_more_info"
	StateAnalyzingWithContext = "analyzing_with_context"
	StateCompleted            = "completed"
)

const intakeQuestion = "What brings you here today? Please describe what you have been experiencing."

// ErrNotFound marks operations against a session id the service does not know.
var ErrNotFound = errors.New("session not found")

// Arbiter is the arbitration dependency.
type Arbiter interface {
	Analyze(ctx context.Context, sessionID string, symptomLog *symptoms.Store) models.ArbitrationResult
}

// Extractor is the symptom extraction dependency.
type Extractor interface {
	ProcessResponse(ctx context.Context, store *symptoms.Store, question, answer string) []models.Symptom
}

// View is what callers see of a session after each operation.
type View struct {
	ID       string                    `json:"session_id"`
	State    string                    `json:"state"`
	Message  string                    `json:"message"`
	Question string                    `json:"question,omitempty"`
	Complete bool                      `json:"is_complete"`
	Result   *models.ArbitrationResult `json:"result,omitempty"`
}

type session struct {
	id             string
	state          string
	symptomLog     *symptoms.Store
	lastQuestion   string
	questionsAsked int
	result         *models.ArbitrationResult
	createdAt      time.Time
	updatedAt      time.Time
}

// Service owns active sessions. Safe for concurrent use; operations on the
// same session serialise on the service lock.
type Service struct {
	arbiter    Arbiter
	extraction Extractor
	sessions   store.Store
	logger     *slog.Logger
	latency    *utils.LatencyTracker

	mu     sync.Mutex
	active map[string]*session
}

// NewService wires a session service.
func NewService(arbiter Arbiter, extraction Extractor, sessions store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		arbiter:    arbiter,
		extraction: extraction,
		sessions:   sessions,
		logger:     logger,
		latency:    utils.NewLatencyTracker(512),
		active:     make(map[string]*session),
	}
}

// Start opens a session from the presenting concern, records the intake
// stage results, and either asks a clarification question or completes the
// assessment outright.
func (s *Service) Start(ctx context.Context, concern string, demographics map[string]any) (View, error) {
	return s.intake(ctx, uuid.NewString(), concern, demographics)
}

func (s *Service) intake(ctx context.Context, sessionID, concern string, demographics map[string]any) (View, error) {
	sess := &session{
		id:           sessionID,
		state:        StateAnalyzing,
		symptomLog:   symptoms.NewStore(),
		lastQuestion: intakeQuestion,
		createdAt:    time.Now().UTC(),
	}

	if err := s.sessions.SaveStageResult(ctx, sess.id, models.StagePresentingConcern, models.StageResult{
		Status:  "completed",
		Concern: concern,
	}); err != nil {
		return View{}, utils.NewAppError("session.Start", "persist presenting concern", err)
	}
	if len(demographics) > 0 {
		if err := s.sessions.SaveStageResult(ctx, sess.id, models.StageDemographics, models.StageResult{
			Status:       "completed",
			Demographics: demographics,
		}); err != nil {
			return View{}, utils.NewAppError("session.Start", "persist demographics", err)
		}
	}
	s.appendTurn(ctx, sess.id, "user", concern)

	s.extraction.ProcessResponse(ctx, sess.symptomLog, intakeQuestion, concern)

	s.mu.Lock()
	s.active[sess.id] = sess
	view := s.advanceLocked(ctx, sess)
	s.mu.Unlock()
	return view, nil
}

// Continue feeds a patient answer into an open session. An unknown session id
// opens a fresh assessment with the message as its presenting concern;
// completed sessions just return their terminal view.
func (s *Service) Continue(ctx context.Context, sessionID, answer string) (View, error) {
	s.mu.Lock()
	sess, ok := s.active[sessionID]
	if !ok {
		s.mu.Unlock()
		return s.intake(ctx, sessionID, answer, nil)
	}
	defer s.mu.Unlock()

	if sess.state == StateCompleted {
		return s.viewLocked(sess), nil
	}

	s.appendTurn(ctx, sessionID, "user", answer)
	s.extraction.ProcessResponse(ctx, sess.symptomLog, sess.lastQuestion, answer)
	sess.state = StateAnalyzingWithContext

	return s.advanceLocked(ctx, sess), nil
}

// RecordStageResult ingests the outcome of an upstream assessment stage so
// arbitration can weigh it.
func (s *Service) RecordStageResult(ctx context.Context, sessionID, stageID string, result models.StageResult) error {
	return s.sessions.SaveStageResult(ctx, sessionID, stageID, result)
}

// Results returns the terminal view of a session. Sessions no longer held in
// memory are restored from the storage collaborator when a persisted
// arbitration record exists.
func (s *Service) Results(ctx context.Context, sessionID string) (View, error) {
	s.mu.Lock()
	if sess, ok := s.active[sessionID]; ok {
		view := s.viewLocked(sess)
		s.mu.Unlock()
		return view, nil
	}
	s.mu.Unlock()

	stages, err := s.sessions.StageResults(ctx, sessionID)
	if err != nil {
		return View{}, utils.NewAppError("session.Results", sessionID, ErrNotFound)
	}
	stage, ok := stages[models.StageDiagnosticAnalysis]
	if !ok {
		return View{}, utils.NewAppError("session.Results", sessionID, ErrNotFound)
	}

	view := View{ID: sessionID, State: StateCompleted, Complete: true}
	if result := restoreResult(stage); result != nil {
		view.Result = result
		view.Message = result.Message
	} else if stage.Diagnosis != "" {
		view.Message = "Your assessment is complete. Recorded result: " + stage.Diagnosis
	} else {
		view.Message = "Your assessment is complete."
	}
	return view, nil
}

// restoreResult rebuilds the arbitration result stashed in a persisted stage
// record. The payload may be the typed struct or a decoded map depending on
// the storage backend, so it round-trips through JSON.
func restoreResult(stage models.StageResult) *models.ArbitrationResult {
	raw, ok := stage.Extra["arbitration"]
	if !ok {
		return nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var result models.ArbitrationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil
	}
	return &result
}

// IsComplete reports whether a session has reached its terminal state.
// Unknown sessions report false.
func (s *Service) IsComplete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[sessionID]
	return ok && sess.state == StateCompleted
}

// Latency exposes arbitration latency percentiles for health reporting.
func (s *Service) Latency() *utils.LatencyTracker {
	return s.latency
}

// advanceLocked runs one round of the clarification loop: ask another
// question when the symptom record is too thin, otherwise arbitrate and
// complete. Caller holds the service lock.
func (s *Service) advanceLocked(ctx context.Context, sess *session) View {
	clarification := sra.Clarify(sess.symptomLog, sess.questionsAsked)
	if clarification.NeedsClarification {
		question := clarification.Questions[0]
		sess.state = StateNeedsMoreInfo
		sess.lastQuestion = question
		sess.questionsAsked++
		sess.updatedAt = time.Now().UTC()
		s.appendTurn(ctx, sess.id, "assistant", question)
		return s.viewLocked(sess)
	}

	s.completeLocked(ctx, sess)
	return s.viewLocked(sess)
}

// completeLocked arbitrates and seals the session. A panic anywhere in
// arbitration degrades to the generic terminal result rather than leaving
// the session open.
func (s *Service) completeLocked(ctx context.Context, sess *session) {
	started := time.Now()

	result := s.arbitrateSafely(ctx, sess)
	elapsed := time.Since(started)

	s.latency.Observe(elapsed)
	metrics.ObserveArbitration(elapsed, metricsOutcome(result.Outcome))

	sess.result = &result
	sess.state = StateCompleted
	sess.updatedAt = time.Now().UTC()

	stageResult := models.StageResult{
		Status: "completed",
		Extra:  map[string]any{"arbitration": result},
	}
	if result.Diagnosis != nil {
		stageResult.Diagnosis = result.Diagnosis.Primary.Name
	}
	if err := s.sessions.SaveStageResult(ctx, sess.id, models.StageDiagnosticAnalysis, stageResult); err != nil {
		s.logger.Warn("failed to persist arbitration stage", "session", sess.id, "error", err)
	}
	s.appendTurn(ctx, sess.id, "assistant", result.Message)
}

func (s *Service) arbitrateSafely(ctx context.Context, sess *session) (result models.ArbitrationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("arbitration panicked, degrading to placeholder result", "session", sess.id, "panic", r)
			placeholder := engine.PlaceholderDiagnosis()
			placeholder.CreatedAt = time.Now().UTC()
			result = models.ArbitrationResult{
				Outcome:   models.OutcomeFallback,
				Diagnosis: &placeholder,
				Message:   "Your assessment is complete. We could not determine a specific result; a clinician will review your responses.",
			}
		}
	}()
	return s.arbiter.Analyze(ctx, sess.id, sess.symptomLog)
}

func (s *Service) viewLocked(sess *session) View {
	view := View{
		ID:       sess.id,
		State:    sess.state,
		Complete: sess.state == StateCompleted,
	}
	switch sess.state {
	case StateCompleted:
		if sess.result != nil {
			view.Message = sess.result.Message
			view.Result = sess.result
		}
	case StateNeedsMoreInfo:
		view.Message = sess.lastQuestion
		view.Question = sess.lastQuestion
	default:
		view.Message = "Assessment in progress."
	}
	return view
}

func (s *Service) appendTurn(ctx context.Context, sessionID, role, content string) {
	turn := models.ConversationTurn{Role: role, Content: content, Timestamp: time.Now().UTC()}
	if err := s.sessions.AppendConversation(ctx, sessionID, turn); err != nil {
		s.logger.Warn("failed to persist conversation turn", "session", sessionID, "error", err)
	}
}

func metricsOutcome(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeReferral:
		return metrics.OutcomeReferral
	case models.OutcomeFallback:
		return metrics.OutcomeFallback
	default:
		return metrics.OutcomeDiagnosis
	}
}
