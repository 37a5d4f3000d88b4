package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/repository"
	"github.com/m-mizutani/claimpilot/pkg/server"
	"github.com/m-mizutani/claimpilot/pkg/service/compliance"
	"github.com/m-mizutani/claimpilot/pkg/service/drafting"
	"github.com/m-mizutani/claimpilot/pkg/service/estimation"
	"github.com/m-mizutani/claimpilot/pkg/service/extraction"
	"github.com/m-mizutani/claimpilot/pkg/service/locator"
	"github.com/m-mizutani/claimpilot/pkg/usecase/claim"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/gt"
)

const carReport = `Car accident report
Date of incident: 03/15/2025
Location: Nassau Street, Princeton
Driver: John Smith
The rear bumper was dented and the tail light broken! Repair quote is $3,500.00`

func newServer(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	checker, err := compliance.New(context.Background())
	gt.NoError(t, err)

	estimator := estimation.New()
	claims := claim.New(repository.NewMemory(), extraction.New())
	orch := orchestrator.New(claims, estimator, locator.New(nil), drafting.New(), checker)
	return server.New(orch, claims, estimator, opts...).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func jsonRequest(method, path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		gt.NoError(t, err)
		_, err = part.Write([]byte(content))
		gt.NoError(t, err)
	}
	for k, v := range fields {
		gt.NoError(t, mw.WriteField(k, v))
	}
	gt.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func processClaim(t *testing.T, h http.Handler) *model.Claim {
	t.Helper()
	form := url.Values{"text": {carReport}}
	req := httptest.NewRequest(http.MethodPost, "/api/process-claim", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := do(t, h, req)
	gt.Equal(t, w.Code, http.StatusOK)
	c := decode[model.Claim](t, w)
	return &c
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func TestHealthAndRoot(t *testing.T) {
	h := newServer(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	health := decode[map[string]any](t, w)
	gt.Equal(t, health["status"], any("healthy"))

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, decode[map[string]any](t, w)["status"], any("healthy"))

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	root := decode[map[string]any](t, w)
	gt.Equal(t, root["name"], any("ClaimPilot AI"))
}

func TestCORS(t *testing.T) {
	h := newServer(t, server.WithAllowedOrigins("*"))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := do(t, h, req)
	gt.NotEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "")
}

func TestClaimLifecycle(t *testing.T) {
	h := newServer(t)
	c := processClaim(t, h)
	gt.Equal(t, c.IncidentType, model.IncidentCarAccident)
	gt.Equal(t, c.Status, model.ClaimStatusProcessing)

	t.Run("get", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims/"+string(c.ID), nil))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, decode[model.Claim](t, w).ID, c.ID)
	})

	t.Run("get unknown", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims/C-2025-FFFFFFFF", nil))
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.S(t, decode[errorResponse](t, w).Detail).Contains("claim not found")
	})

	t.Run("list", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		body := decode[struct {
			Count  int            `json:"count"`
			Claims []*model.Claim `json:"claims"`
		}](t, w)
		gt.Equal(t, body.Count, 1)
		gt.A(t, body.Claims).Length(1)

		w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims?status=Archived", nil))
		gt.Equal(t, w.Code, http.StatusBadRequest)
	})

	t.Run("update status", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodPut, "/api/claims/"+string(c.ID)+"/status?status=closed", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, decode[model.Claim](t, w).Status, model.ClaimStatusClosed)

		w = do(t, h, jsonRequest(http.MethodPut, "/api/claims/"+string(c.ID)+"/status", map[string]string{"status": "Open"}))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, decode[model.Claim](t, w).Status, model.ClaimStatusOpen)

		w = do(t, h, httptest.NewRequest(http.MethodPut, "/api/claims/"+string(c.ID)+"/status?status=Lost", nil))
		gt.Equal(t, w.Code, http.StatusBadRequest)

		w = do(t, h, httptest.NewRequest(http.MethodPut, "/api/claims/C-2025-FFFFFFFF/status?status=Open", nil))
		gt.Equal(t, w.Code, http.StatusNotFound)
	})

	t.Run("analysis", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims/"+string(c.ID)+"/analysis", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, decode[model.Analysis](t, w).Severity, model.SeverityTierMedium)
	})

	t.Run("draft and compliance", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodPost, "/api/claims/"+string(c.ID)+"/draft", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, decode[model.Draft](t, w).HTML).Contains(string(c.ID))

		w = do(t, h, httptest.NewRequest(http.MethodPost, "/api/claims/"+string(c.ID)+"/compliance-check", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, decode[model.ComplianceResult](t, w).ClaimID, c.ID)

		w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/claims/"+string(c.ID)+"/agent-status", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		status := decode[struct {
			AgentStatus model.AgentStatusMap `json:"agent_status"`
		}](t, w)
		gt.Equal(t, status.AgentStatus[model.AgentClaimDrafting], model.AgentComplete)
		gt.Equal(t, status.AgentStatus[model.AgentComplianceCheck], model.AgentComplete)
	})

	t.Run("email", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodPost, "/api/claims/"+string(c.ID)+"/email", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		email := decode[model.Email](t, w)
		gt.Equal(t, email.ClaimID, c.ID)
		gt.Equal(t, email.Source, model.EmailFromTemplate)
		gt.S(t, email.Body).Contains("Dear Insurance Claims Department")

		w = do(t, h, httptest.NewRequest(http.MethodPost, "/api/claims/C-2025-FFFFFFFF/email", nil))
		gt.Equal(t, w.Code, http.StatusNotFound)
	})

	t.Run("stats", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		gt.Equal(t, w.Code, http.StatusOK)
		stats := decode[struct {
			TotalClaims  int            `json:"total_claims"`
			ClaimsByType map[string]int `json:"claims_by_type"`
		}](t, w)
		gt.Equal(t, stats.TotalClaims, 1)
		gt.Equal(t, stats.ClaimsByType["Car Accident"], 1)
	})
}

func TestProcessClaimRequiresInput(t *testing.T) {
	h := newServer(t)

	w := do(t, h, multipartRequest(t, "/api/process-claim", "", "", map[string]string{"note": "nothing"}))
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.S(t, decode[errorResponse](t, w).Detail).Contains("either file or text must be provided")

	w = do(t, h, multipartRequest(t, "/api/process-claim", "blank.txt", "   ", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestAgentStatus(t *testing.T) {
	h := newServer(t)
	path := "/api/claims/C-2025-AAAA1111/agent-status"

	w := do(t, h, httptest.NewRequest(http.MethodGet, path, nil))
	gt.Equal(t, w.Code, http.StatusOK)
	initial := decode[struct {
		ClaimID     string               `json:"claim_id"`
		AgentStatus model.AgentStatusMap `json:"agent_status"`
	}](t, w)
	gt.Equal(t, initial.ClaimID, "C-2025-AAAA1111")
	gt.Equal(t, len(initial.AgentStatus), 5)

	w = do(t, h, jsonRequest(http.MethodPut, path, map[string]string{"agent": "FinTrack", "status": "Complete"}))
	gt.Equal(t, w.Code, http.StatusOK)

	w = do(t, h, httptest.NewRequest(http.MethodGet, path, nil))
	updated := decode[struct {
		AgentStatus model.AgentStatusMap `json:"agent_status"`
	}](t, w)
	gt.Equal(t, updated.AgentStatus[model.AgentFinTrack], model.AgentComplete)

	w = do(t, h, jsonRequest(http.MethodPut, path, map[string]string{"agent": "Underwriter", "status": "Complete"}))
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestEstimateEndpoints(t *testing.T) {
	h := newServer(t)
	c := processClaim(t, h)
	base := "/api/estimate/" + string(c.ID)

	w := do(t, h, httptest.NewRequest(http.MethodPost, base+"?coverage_override=0.5", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	est := decode[model.Estimate](t, w)
	gt.Equal(t, est.CoveragePercentage, 0.5)
	gt.Equal(t, est.TotalEstimatedDamage, 3500.0)
	gt.Equal(t, est.Deductible+est.EstimatedPayout, est.TotalEstimatedDamage)

	w = do(t, h, httptest.NewRequest(http.MethodPost, base+"?coverage_override=1.5", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, httptest.NewRequest(http.MethodPost, base+"?coverage_override=half", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		w = do(t, h, httptest.NewRequest(http.MethodPost, base+"?coverage_override="+v, nil))
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.S(t, decode[map[string]string](t, w)["detail"]).Contains("coverage")
	}

	w = do(t, h, httptest.NewRequest(http.MethodPost, base+"?severity=bogus", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.S(t, decode[map[string]string](t, w)["detail"]).Contains("unknown severity")

	w = do(t, h, httptest.NewRequest(http.MethodPost, base+"?severity=severe", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, decode[model.Estimate](t, w).Severity, model.SeveritySevere)

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/api/estimate/C-2025-FFFFFFFF", nil))
	gt.Equal(t, w.Code, http.StatusNotFound)

	w = do(t, h, jsonRequest(http.MethodPost, "/api/compare-estimates/"+string(c.ID), []string{"minor", "severe"}))
	gt.Equal(t, w.Code, http.StatusOK)
	cmp := decode[struct {
		Comparisons map[model.Severity]*model.Estimate `json:"comparisons"`
	}](t, w)
	gt.Equal(t, len(cmp.Comparisons), 2)
	gt.Equal(t, cmp.Comparisons[model.SeverityMinor].Severity, model.SeverityMinor)

	w = do(t, h, jsonRequest(http.MethodPost, "/api/compare-estimates/"+string(c.ID), []string{}))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, jsonRequest(http.MethodPost, "/api/compare-estimates/"+string(c.ID), []string{"minor", "bogus"}))
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestShopEndpoints(t *testing.T) {
	h := newServer(t)
	c := processClaim(t, h)
	base := "/api/shops/" + string(c.ID)

	w := do(t, h, httptest.NewRequest(http.MethodGet, base+"?max_results=2", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	set := decode[model.RecommendationSet](t, w)
	gt.A(t, set.Providers).Length(2)
	gt.True(t, set.Providers[0].Rating > 0)

	w = do(t, h, httptest.NewRequest(http.MethodGet, base+"/specialty/Paint", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	set = decode[model.RecommendationSet](t, w)
	gt.A(t, set.Providers).Length(2)
	for _, p := range set.Providers {
		gt.S(t, strings.ToLower(strings.Join(p.Specialties, " "))).Contains("paint")
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, base+"?max_results=abc", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, httptest.NewRequest(http.MethodGet, base+"?price_preference="+url.QueryEscape("$$$$$"), nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, httptest.NewRequest(http.MethodGet, base+"/specialty/Submarines", nil))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/shops/C-2025-FFFFFFFF", nil))
	gt.Equal(t, w.Code, http.StatusNotFound)
}

func TestChat(t *testing.T) {
	h := newServer(t)

	w := do(t, h, jsonRequest(http.MethodPost, "/api/chat", map[string]string{"message": "I need help"}))
	gt.Equal(t, w.Code, http.StatusOK)
	resp := decode[orchestrator.Response](t, w)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.Intent, orchestrator.IntentGeneralQuery)

	w = do(t, h, jsonRequest(http.MethodPost, "/api/chat", map[string]string{
		"message":   "here is my report",
		"file_data": base64.StdEncoding.EncodeToString([]byte(carReport)),
		"file_name": "report.txt",
	}))
	gt.Equal(t, w.Code, http.StatusOK)
	resp = decode[orchestrator.Response](t, w)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.Intent, orchestrator.IntentProcessDocument)
	gt.V(t, resp.Claim).NotNil()

	// a failed lookup is still a 200 with success false
	w = do(t, h, jsonRequest(http.MethodPost, "/api/chat", map[string]string{"message": "status?", "claim_id": "C-2025-FFFFFFFF"}))
	gt.Equal(t, w.Code, http.StatusOK)
	resp = decode[orchestrator.Response](t, w)
	gt.False(t, resp.Success)
	gt.S(t, resp.Message).Contains("C-2025-FFFFFFFF")

	w = do(t, h, jsonRequest(http.MethodPost, "/api/chat", map[string]string{"message": "x", "file_data": "%%%"}))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	w = do(t, h, req)
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/conversation/history", nil))
	gt.Equal(t, w.Code, http.StatusOK)
	history := decode[struct {
		History []model.Turn `json:"history"`
	}](t, w)
	gt.A(t, history.History).Length(6)

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/api/conversation/clear", nil))
	gt.Equal(t, w.Code, http.StatusOK)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/conversation/history", nil))
	history = decode[struct {
		History []model.Turn `json:"history"`
	}](t, w)
	gt.A(t, history.History).Length(0)
}

func TestChatFileNameWithoutData(t *testing.T) {
	h := newServer(t)

	w := do(t, h, jsonRequest(http.MethodPost, "/api/chat", map[string]string{
		"message":   "here is my report",
		"file_name": "report.txt",
	}))
	gt.Equal(t, w.Code, http.StatusOK)
	resp := decode[orchestrator.Response](t, w)
	gt.False(t, resp.Success)
	gt.Equal(t, resp.Intent, orchestrator.IntentProcessDocument)
	gt.True(t, resp.Claim == nil)
}

func TestUploadEndpoints(t *testing.T) {
	h := newServer(t)

	w := do(t, h, multipartRequest(t, "/api/upload", "report.txt", carReport, nil))
	gt.Equal(t, w.Code, http.StatusOK)
	resp := decode[orchestrator.Response](t, w)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.Intent, orchestrator.IntentProcessDocument)

	w = do(t, h, multipartRequest(t, "/api/upload", "", "", map[string]string{"message": "hi"}))
	gt.Equal(t, w.Code, http.StatusBadRequest)

	w = do(t, h, multipartRequest(t, "/api/process-full-claim", "report.txt", carReport, nil))
	gt.Equal(t, w.Code, http.StatusOK)
	full := decode[struct {
		Success     bool                      `json:"success"`
		Intent      orchestrator.Intent       `json:"intent"`
		AgentStatus model.AgentStatusMap      `json:"agent_status"`
		Steps       []orchestrator.StepResult `json:"steps"`
		Compliance  *model.ComplianceResult   `json:"compliance"`
	}](t, w)
	gt.True(t, full.Success)
	gt.Equal(t, full.Intent, orchestrator.IntentFullWorkflow)
	gt.A(t, full.Steps).Length(5)
	gt.V(t, full.Compliance).NotNil()
	for _, agent := range model.Agents {
		gt.Equal(t, full.AgentStatus[agent], model.AgentComplete)
	}
}
