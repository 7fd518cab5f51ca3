package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"exec-sim/server/internal/analyzer"
	"exec-sim/server/internal/config"
	"exec-sim/server/internal/model"
)

func newTestOrchestrator(llmFails bool) (*Orchestrator, *analyzer.MockLLMClient) {
	mock := analyzer.NewMockLLMClient()
	mock.ShouldFail = llmFails
	a := analyzer.New(config.AnalyzerConfig{EnableLLM: true}, mock)
	return New(a), mock
}

func sessionState() *model.SessionState {
	return &model.SessionState{
		SessionID:       "test-1",
		ScenarioContext: "Negociación de inversión Serie A",
		UserRole:        "CEO de la startup",
		CounterpartRole: "Socio del fondo",
		UserObjectives:  []string{"Cerrar acuerdo"},
		EndConditions:   []string{"Se alcanza un acuerdo"},
	}
}

func TestProcessTurnEmptyMessage(t *testing.T) {
	o, _ := newTestOrchestrator(false)
	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := o.ProcessTurn(context.Background(), msg, sessionState(), nil)
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("ProcessTurn(%q) err = %v, want ErrEmptyMessage", msg, err)
		}
	}
	t.Logf("✓ 空消息返回 ErrEmptyMessage")
}

func TestProcessTurnNeverFailsWithBrokenLLM(t *testing.T) {
	o, mock := newTestOrchestrator(true)
	state := sessionState()

	var insights *model.ConversationInsights
	messages := []string{
		"Hola, gracias por recibirme",
		"Propongo una inversión de $5M por el 20%",
		"Estoy de acuerdo, acepto los términos",
	}
	for i, msg := range messages {
		result, err := o.ProcessTurn(context.Background(), msg, state, insights)
		if err != nil {
			t.Fatalf("Turn %d failed: %v", i+1, err)
		}
		if strings.TrimSpace(result.Response.Content) == "" {
			t.Errorf("Turn %d produced empty response", i+1)
		}
		if result.UpdatedInsights == nil {
			t.Fatalf("Turn %d returned nil insights", i+1)
		}
		insights = result.UpdatedInsights
		state.Turns = append(state.Turns,
			model.Turn{Speaker: model.SpeakerUser, Text: msg},
			model.Turn{Speaker: model.SpeakerCounterpart, Text: result.Response.Content},
		)
	}
	if mock.CallCount != len(messages) {
		t.Errorf("LLM attempted %d times, want %d", mock.CallCount, len(messages))
	}
	t.Logf("✓ LLM 全程失败, %d 轮对话照常进行", len(messages))
}

func TestProcessTurnReturnsCompleteTriple(t *testing.T) {
	o, _ := newTestOrchestrator(true)
	result, err := o.ProcessTurn(context.Background(), "Propongo revisar la valoración", sessionState(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Analysis.Summary == "" {
		t.Error("Expected analysis summary")
	}
	if result.Response.ConfidenceLevel < 1 || result.Response.ConfidenceLevel > 10 {
		t.Errorf("ConfidenceLevel %d out of [1,10]", result.Response.ConfidenceLevel)
	}
	if result.UpdatedInsights.UserTurnCount != 1 {
		t.Errorf("UserTurnCount = %d, want 1", result.UpdatedInsights.UserTurnCount)
	}
	if result.UpdatedInsights.CurrentPhase() != model.PhaseOpening {
		t.Errorf("Phase = %s, want opening", result.UpdatedInsights.CurrentPhase())
	}
	t.Logf("✓ 三元组完整: 回复/分析/记忆")
}

func TestProcessTurnDoesNotMutateCallerInsights(t *testing.T) {
	o, _ := newTestOrchestrator(true)
	state := sessionState()

	first, err := o.ProcessTurn(context.Background(), "Tenemos un problema urgente con la competencia", state, nil)
	if err != nil {
		t.Fatal(err)
	}
	prior := first.UpdatedInsights
	priorTurns := prior.UserTurnCount
	priorPoints := len(prior.AllKeyPoints)

	state.Turns = append(state.Turns, model.Turn{Speaker: model.SpeakerUser, Text: "m1"})
	if _, err := o.ProcessTurn(context.Background(), "Ahora hablemos del crecimiento de usuarios", state, prior); err != nil {
		t.Fatal(err)
	}

	if prior.UserTurnCount != priorTurns || len(prior.AllKeyPoints) != priorPoints {
		t.Error("ProcessTurn mutated caller-held insights")
	}
	t.Logf("✓ 编排器不修改调用方持有的记忆")
}

func TestProcessTurnInsightQueryShortCircuit(t *testing.T) {
	o, _ := newTestOrchestrator(true)
	state := sessionState()

	// 第一轮积累财务数据
	first, err := o.ProcessTurn(context.Background(), "Buscamos $5M en la Serie A", state, nil)
	if err != nil {
		t.Fatal(err)
	}
	state.Turns = append(state.Turns,
		model.Turn{Speaker: model.SpeakerUser, Text: "Buscamos $5M en la Serie A"},
		model.Turn{Speaker: model.SpeakerCounterpart, Text: first.Response.Content},
	)

	// 第二轮问既往财务内容：应走记忆直答
	second, err := o.ProcessTurn(context.Background(), "¿Qué cifras financieras hemos mencionado?", state, first.UpdatedInsights)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(second.Response.Content, "$5M") {
		t.Errorf("Insight response should cite accumulated financial data: %q", second.Response.Content)
	}
	if second.Response.ConfidenceLevel != 9 {
		t.Errorf("ConfidenceLevel = %d, want 9 for memory-backed answer", second.Response.ConfidenceLevel)
	}
	t.Logf("✓ 记忆直答: %q", second.Response.Content)
}

func TestProcessTurnFirstTurnSkipsInsightPath(t *testing.T) {
	o, _ := newTestOrchestrator(true)
	result, err := o.ProcessTurn(context.Background(), "¿Qué cifras financieras hemos mencionado?", sessionState(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Response.SuggestedFollowUp == "¿Quieres que revisemos algún punto específico?" {
		t.Error("First turn must not use the memory-backed answer path")
	}
	t.Logf("✓ 首轮不走记忆直答")
}

func TestOpeningLine(t *testing.T) {
	o, _ := newTestOrchestrator(false)
	state := sessionState()
	state.ScenarioContext = "Crisis de reputación corporativa"

	resp := o.OpeningLine(state)
	if !strings.Contains(resp.Content, "la situación está escalando") {
		t.Errorf("Expected crisis opening, got %q", resp.Content)
	}
	t.Logf("✓ 开场白按场景选择")
}
