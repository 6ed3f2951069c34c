package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/config"
	"github.com/justsurfingit/jobsearch-hub/internal/database"
	"github.com/justsurfingit/jobsearch-hub/internal/logger"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *Deps) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if cfg == nil {
		cfg = &config.Config{CORSAllowedOrigins: []string{"*"}}
	}
	log := logger.Discard()
	runner := services.NewAutomationRunner(db, log, services.RunnerConfig{})
	deps := NewDeps(db, log, runner, nil)
	return NewRouter(cfg, deps, log), deps
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func createJob(t *testing.T, r http.Handler, stage string) uint {
	t.Helper()
	rr := doJSON(t, r, http.MethodPost, "/api/v1/jobs", map[string]any{
		"company_name": "Initech",
		"role_title":   "Backend Engineer",
		"stage":        stage,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var job struct {
		ID uint `json:"id"`
	}
	decode(t, rr, &job)
	return job.ID
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rr := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestJobsAPI(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rr := doJSON(t, r, http.MethodPost, "/api/v1/jobs", map[string]any{"role_title": "No company"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	id := createJob(t, r, "saved")

	rr = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/jobs/%d", id), map[string]any{"stage": "interview"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var job struct {
		Stage   string `json:"stage"`
		Company struct {
			Name string `json:"company_name"`
		} `json:"company"`
	}
	decode(t, rr, &job)
	assert.Equal(t, "interview", job.Stage)
	assert.Equal(t, "Initech", job.Company.Name)

	rr = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/events", id), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var events []struct {
		EventType string `json:"event_type"`
	}
	decode(t, rr, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "STAGE_CHANGE", events[0].EventType)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/jobs?stage=interview", nil)
	var list []map[string]any
	decode(t, rr, &list)
	assert.Len(t, list, 1)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/jobs?stage=ghosted", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/jobs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/jobs/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body map[string]string
	decode(t, rr, &body)
	assert.Contains(t, body["error"], "not found")
}

type goalBody struct {
	ID         uint   `json:"id"`
	Progress   string `json:"progress"`
	Milestones []struct {
		ID        uint `json:"id"`
		Completed bool `json:"completed"`
	} `json:"milestones"`
}

func TestGoalsAPI_MilestoneOrdering(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rr := doJSON(t, r, http.MethodPost, "/api/v1/goals", map[string]any{
		"specific": "Land a backend role",
		"deadline": "2025-06-30",
		"milestones": []map[string]any{
			{"title": "Mock interviews", "deadline": "2025-05-01"},
			{"title": "Polish resume", "deadline": "2025-04-01"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var goal goalBody
	decode(t, rr, &goal)
	require.Len(t, goal.Milestones, 2)
	assert.Equal(t, "not_started", goal.Progress)
	first, second := goal.Milestones[0].ID, goal.Milestones[1].ID

	rr = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/goals/%d/milestones/%d/toggle", goal.ID, second), nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/goals/%d/milestones/%d/toggle", goal.ID, first), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &goal)
	assert.Equal(t, "in_progress", goal.Progress)

	// an open milestone may not land before the completed one
	rr = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/goals/%d/milestones", goal.ID), map[string]any{
		"title": "Update LinkedIn", "deadline": "2025-03-01",
	})
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())

	rr = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/goals/%d/milestones/%d/toggle", goal.ID, second), map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &goal)
	assert.Equal(t, "completed", goal.Progress)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/insights/goals", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var insights services.GoalInsights
	decode(t, rr, &insights)
	assert.Equal(t, 1, insights.TotalGoals)
	assert.Equal(t, 1, insights.CompletedGoals)
	assert.Equal(t, 100, insights.CompletionRate)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/goals", map[string]any{"specific": "No deadline"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAutomationsAPI_RunAndNotify(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	jobID := createJob(t, r, "applied")

	rr := doJSON(t, r, http.MethodPost, "/api/v1/automations", map[string]any{
		"type":   "follow_up",
		"config": map[string]any{"jobId": jobID, "message": "Check in with the hiring manager"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, r, http.MethodPost, "/api/v1/automations", map[string]any{
		"type":   "follow_up",
		"config": map[string]any{"message": "no job"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/automations/run", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var summary services.RunSummary
	decode(t, rr, &summary)
	assert.Equal(t, services.RunSummary{Claimed: 1, Succeeded: 1}, summary)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/notifications?unread=true", nil)
	var notes []struct {
		ID      uint   `json:"id"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	decode(t, rr, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "reminder", notes[0].Kind)
	assert.Equal(t, "Check in with the hiring manager", notes[0].Message)

	rr = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%d/read", notes[0].ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/notifications?unread=true", nil)
	decode(t, rr, &notes)
	assert.Empty(t, notes)

	rr = doJSON(t, r, http.MethodGet, "/api/v1/automations?status=done", nil)
	var rules []map[string]any
	decode(t, rr, &rules)
	assert.Len(t, rules, 1)
}

type busyRunner struct{}

func (busyRunner) RunOnce(context.Context) (services.RunSummary, error) {
	return services.RunSummary{}, services.ErrRunInProgress
}

func TestAutomationsAPI_RunConflict(t *testing.T) {
	r, deps := newTestRouter(t, nil)
	deps.Runner = busyRunner{}
	r = NewRouter(&config.Config{}, deps, logger.Discard())

	rr := doJSON(t, r, http.MethodPost, "/api/v1/automations/run", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestJobsAPI_Extract(t *testing.T) {
	r, deps := newTestRouter(t, nil)

	rr := doJSON(t, r, http.MethodPost, "/api/v1/jobs/extract", map[string]any{"raw_html": "<p>hiring</p>"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	deps.Extractor = &services.LLMService{Client: fake.NewFakeLLM([]string{
		`{"company_name":"Globex","role_title":"Platform Engineer","tech_stack":["Go"]}`,
		"not json",
	})}
	r = NewRouter(&config.Config{}, deps, logger.Discard())

	rr = doJSON(t, r, http.MethodPost, "/api/v1/jobs/extract", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/jobs/extract", map[string]any{
		"raw_html": "<p>Globex is hiring a Platform Engineer</p>",
		"url":      "https://jobs.globex.com/42",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Success bool                `json:"success"`
		Data    services.JobDetails `json:"data"`
	}
	decode(t, rr, &out)
	assert.True(t, out.Success)
	assert.Equal(t, "Globex", out.Data.CompanyName)
	assert.Equal(t, []string{"Go"}, out.Data.TechStack)
	assert.Equal(t, "https://jobs.globex.com/42", out.Data.JobLink)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/jobs/extract", map[string]any{"raw_html": "<p>?</p>"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestReferencesAPI(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, body := range []map[string]any{
		{"name": "Ana", "tags": []string{"go", "distributed systems"}},
		{"name": "Ben", "tags": []string{"marketing"}},
		{"name": "Cy", "tags": []string{"go"}, "availability_status": "unavailable"},
	} {
		rr := doJSON(t, r, http.MethodPost, "/api/v1/references", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := doJSON(t, r, http.MethodPost, "/api/v1/references/1/contacts", map[string]any{
		"kind": "request", "outcome": "success", "contacted_at": "2025-02-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var ref struct {
		UsageCount   int              `json:"usage_count"`
		SuccessCount int              `json:"success_count"`
		History      []map[string]any `json:"relationship_history"`
	}
	decode(t, rr, &ref)
	assert.Equal(t, 1, ref.UsageCount)
	assert.Equal(t, 1, ref.SuccessCount)
	assert.Len(t, ref.History, 1)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/references/1/contacts", map[string]any{"kind": "carrier pigeon"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/references/portfolio", map[string]any{
		"goal": "Go engineer for distributed systems", "limit": 5,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var portfolio struct {
		References []struct {
			Score     float64 `json:"score"`
			Summary   string  `json:"summary"`
			Reference struct {
				Name string `json:"name"`
			} `json:"reference"`
		} `json:"references"`
	}
	decode(t, rr, &portfolio)
	require.Len(t, portfolio.References, 2)
	assert.Equal(t, "Ana", portfolio.References[0].Reference.Name)
	assert.Equal(t, 25.0, portfolio.References[0].Score)
	assert.NotEmpty(t, portfolio.References[0].Summary)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/references/portfolio", map[string]any{"goal": "x", "limit": 50})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	r, deps := newTestRouter(t, nil)
	rr := doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r = NewRouter(&config.Config{}, deps, logger.Discard())
	rr = doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "# metrics", rr.Body.String())
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t, &config.Config{CORSAllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	r, _ := newTestRouter(t, &config.Config{RateLimitRPS: 0.1, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, r, http.MethodGet, "/api/v1/health", nil).Code)
}
