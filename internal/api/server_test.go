package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/session"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

type fakeSessions struct {
	view   session.View
	err    error
	stages map[string]models.StageResult
}

func (f *fakeSessions) Start(context.Context, string, map[string]any) (session.View, error) {
	return f.view, f.err
}

func (f *fakeSessions) Continue(context.Context, string, string) (session.View, error) {
	return f.view, f.err
}

func (f *fakeSessions) Results(context.Context, string) (session.View, error) {
	return f.view, f.err
}

func (f *fakeSessions) RecordStageResult(_ context.Context, _ string, stageID string, result models.StageResult) error {
	if f.stages == nil {
		f.stages = make(map[string]models.StageResult)
	}
	f.stages[stageID] = result
	return f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestStartAssessment(t *testing.T) {
	sessions := &fakeSessions{view: session.View{ID: "abc", State: session.StateNeedsMoreInfo, Question: "How severe?"}}
	server := NewServer(sessions, nil)

	recorder := do(t, server, http.MethodPost, "/v1/assessments", `{"concern": "I feel anxious"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", recorder.Code, recorder.Body)
	}

	var view session.View
	if err := json.Unmarshal(recorder.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.ID != "abc" || view.Question != "How severe?" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestStartAssessmentRequiresConcern(t *testing.T) {
	server := NewServer(&fakeSessions{}, nil)
	recorder := do(t, server, http.MethodPost, "/v1/assessments", `{}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestResultsUnknownSession(t *testing.T) {
	sessions := &fakeSessions{err: utils.NewAppError("session.Results", "nope", session.ErrNotFound)}
	server := NewServer(sessions, nil)

	recorder := do(t, server, http.MethodGet, "/v1/assessments/nope/results", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestRecordStage(t *testing.T) {
	sessions := &fakeSessions{}
	server := NewServer(sessions, nil)

	recorder := do(t, server, http.MethodPut, "/v1/assessments/abc/stages/gad",
		`{"diagnosis": "Generalized Anxiety Disorder", "criteria_met": true}`)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", recorder.Code, recorder.Body)
	}
	stage, ok := sessions.stages["gad"]
	if !ok || stage.Diagnosis != "Generalized Anxiety Disorder" {
		t.Fatalf("stage not recorded: %+v", sessions.stages)
	}
	if stage.CriteriaMet == nil || !*stage.CriteriaMet {
		t.Fatal("criteria flag not decoded")
	}
}

func TestResults(t *testing.T) {
	sessions := &fakeSessions{view: session.View{
		ID:       "abc",
		State:    session.StateCompleted,
		Complete: true,
		Result: &models.ArbitrationResult{
			Outcome: models.OutcomeDiagnosis,
			Message: "done",
		},
	}}
	server := NewServer(sessions, nil)

	recorder := do(t, server, http.MethodGet, "/v1/assessments/abc/results", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var view session.View
	if err := json.Unmarshal(recorder.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !view.Complete || view.Result == nil || view.Result.Outcome != models.OutcomeDiagnosis {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestHealthz(t *testing.T) {
	server := NewServer(&fakeSessions{}, nil)
	recorder := do(t, server, http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}
