package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"exec-sim/server/internal/analyzer"
	"exec-sim/server/internal/config"
	"exec-sim/server/internal/model"
	"exec-sim/server/internal/orchestrator"
	"exec-sim/server/internal/session"

	"github.com/gin-gonic/gin"
)

const testScenarios = `
scenarios:
  - id: merger-test
    title: Negociación de fusión
    category: negociación
    description: Negociación de fusión entre dos empresas de tecnología
    user_role: CEO de la empresa adquirente
    counterpart_role: Founder de la empresa objetivo
    personality:
      analytical: 70
      patience: 40
    counterpart_objectives:
      - Maximizar la valoración de la empresa
    user_objectives:
      - Cerrar la adquisición en términos favorables
    end_conditions:
      - Se alcanza un acuerdo sobre el precio
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	if err := os.WriteFile(path, []byte(testScenarios), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Paths.Scenarios = path

	// 规则策略足够覆盖 HTTP 层的行为，不需要 LLM
	az := analyzer.New(config.AnalyzerConfig{EnableLLM: false}, nil)
	srv, err := NewServer(cfg, session.NewInMemoryStore(), orchestrator.New(az))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func createTestSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	w := doJSON(t, handler, http.MethodPost, "/api/sessions", gin.H{"scenario_id": "merger-test"})
	if w.Code != http.StatusOK {
		t.Fatalf("create session status = %d: %s", w.Code, w.Body.String())
	}
	var resp createSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected non-empty session_id")
	}
	if resp.Opening.Content == "" {
		t.Fatal("expected counterpart opening line")
	}
	return resp.SessionID
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(t).Routes()
	w := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}
}

func TestScenariosEndpoint(t *testing.T) {
	handler := newTestServer(t).Routes()
	w := doJSON(t, handler, http.MethodGet, "/api/scenarios", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scenarios status = %d", w.Code)
	}
	var scenarios []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &scenarios); err != nil {
		t.Fatal(err)
	}
	if len(scenarios) != 1 || scenarios[0]["id"] != "merger-test" {
		t.Fatalf("unexpected scenarios payload: %s", w.Body.String())
	}
}

func TestCreateSessionUnknownScenario(t *testing.T) {
	handler := newTestServer(t).Routes()
	w := doJSON(t, handler, http.MethodPost, "/api/sessions", gin.H{"scenario_id": "missing"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestMessageFlow(t *testing.T) {
	handler := newTestServer(t).Routes()
	sessionID := createTestSession(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		gin.H{"content": "Propongo una inversión de $5M por el 30% de la empresa"})
	if w.Code != http.StatusOK {
		t.Fatalf("message status = %d: %s", w.Code, w.Body.String())
	}

	var resp messageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response.Content == "" {
		t.Fatal("expected counterpart response content")
	}
	if resp.Analysis.Emotion.Primary == "" {
		t.Fatalf("expected analysis, got: %+v", resp.Analysis)
	}
	if resp.Insights == nil || len(resp.Insights.AllFinancial) == 0 {
		t.Fatalf("expected financial insights, got: %+v", resp.Insights)
	}
	t.Logf("✓ 单轮管线: emotion=%s", resp.Analysis.Emotion.Primary)
}

func TestMessageEmptyContent(t *testing.T) {
	handler := newTestServer(t).Routes()
	sessionID := createTestSession(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/messages", gin.H{"content": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty content, got %d", w.Code)
	}
}

func TestMessageUnknownSession(t *testing.T) {
	handler := newTestServer(t).Routes()
	w := doJSON(t, handler, http.MethodPost, "/api/sessions/S_nope/messages", gin.H{"content": "hola"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInsightEndpoints(t *testing.T) {
	handler := newTestServer(t).Routes()
	sessionID := createTestSession(t, handler)

	if w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		gin.H{"content": "Ofrezco $10M y un plan de sinergias comerciales"}); w.Code != http.StatusOK {
		t.Fatalf("message status = %d", w.Code)
	}

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/"+sessionID+"/insights", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insights status = %d", w.Code)
	}
	var insights model.ConversationInsights
	if err := json.Unmarshal(w.Body.Bytes(), &insights); err != nil {
		t.Fatal(err)
	}
	if len(insights.AllFinancial) == 0 {
		t.Fatalf("expected accumulated financial mentions, got: %s", w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/insights/query",
		gin.H{"question": "¿Qué cifras financieras hemos mencionado?"})
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d", w.Code)
	}
	var answer struct {
		CanAnswer bool `json:"can_answer"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &answer); err != nil {
		t.Fatal(err)
	}
	if !answer.CanAnswer {
		t.Fatalf("expected memory to answer financial question: %s", w.Body.String())
	}

	w = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sessionID+"/insights/search?q=10M", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sessionID+"/insights/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing q, got %d", w.Code)
	}
}

func TestAssessmentEndpoint(t *testing.T) {
	handler := newTestServer(t).Routes()
	sessionID := createTestSession(t, handler)

	if w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		gin.H{"content": "Propongo estructurar el pago en dos tramos"}); w.Code != http.StatusOK {
		t.Fatalf("message status = %d", w.Code)
	}

	w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/assessment", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assessment status = %d", w.Code)
	}
	var report struct {
		OverallScore int `json:"overall_score"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.OverallScore < 0 || report.OverallScore > 100 {
		t.Fatalf("overall_score out of range: %d", report.OverallScore)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	handler := newTestServer(t).Routes()
	sessionID := createTestSession(t, handler)

	if w := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		gin.H{"content": "Quiero discutir la valoración"}); w.Code != http.StatusOK {
		t.Fatalf("message status = %d", w.Code)
	}

	w := doJSON(t, handler, http.MethodGet, "/api/sessions/"+sessionID+"/transcript", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", w.Code)
	}
	var resp struct {
		Events []model.TranscriptEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	// session_created + 开场白 + 用户消息 + 对手回应
	if len(resp.Events) != 4 {
		t.Fatalf("expected 4 transcript events, got %d", len(resp.Events))
	}
	if resp.Events[0].Type != "session_created" || resp.Events[0].Seq != 1 {
		t.Fatalf("unexpected first event: %+v", resp.Events[0])
	}
	if resp.Events[2].Type != "user_message" || resp.Events[2].Speaker != model.SpeakerUser {
		t.Fatalf("unexpected user event: %+v", resp.Events[2])
	}
}
