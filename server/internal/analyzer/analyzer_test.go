package analyzer

import (
	"context"
	"testing"

	"exec-sim/server/internal/config"
	"exec-sim/server/internal/model"
)

func testState() *model.SessionState {
	return &model.SessionState{
		SessionID:       "test-1",
		ScenarioContext: "Negociación de inversión Serie A para una startup de tecnología",
		UserRole:        "CEO de la startup",
		CounterpartRole: "Socio del fondo de inversión",
		UserObjectives: []string{
			"Conseguir la inversión Serie A",
			"Mantener control del directorio",
		},
		EndConditions: []string{"Se alcanza un acuerdo de inversión"},
	}
}

func rulesOnly() *Analyzer {
	return New(config.AnalyzerConfig{EnableLLM: false}, nil)
}

func TestAnalyzeRulesEmotion(t *testing.T) {
	a := rulesOnly()
	tests := []struct {
		name    string
		message string
		want    model.Emotion
	}{
		{"积极", "Perfecto, me parece excelente la propuesta", model.EmotionPositive},
		{"攻击性", "Esto es inaceptable, exijo una respuesta", model.EmotionAggressive},
		{"犹豫", "No estoy seguro, déjeme pensarlo", model.EmotionHesitant},
		{"自信", "Propongo una estrategia de expansión en tres fases", model.EmotionConfident},
		{"协作", "Trabajemos juntos en una alianza", model.EmotionCollaborative},
		{"中性", "El informe trimestral ya fue enviado", model.EmotionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Analyze(context.Background(), tt.message, testState())
			if result.Emotion.Primary != tt.want {
				t.Errorf("Emotion = %s, want %s", result.Emotion.Primary, tt.want)
			}
			if result.Emotion.Confidence < 0 || result.Emotion.Confidence > 1 {
				t.Errorf("Confidence %f fuera de [0,1]", result.Emotion.Confidence)
			}
			t.Logf("✓ %q → %s (%.2f)", tt.message, result.Emotion.Primary, result.Emotion.Confidence)
		})
	}
}

func TestAnalyzeEmptyMessage(t *testing.T) {
	a := rulesOnly()
	result := a.Analyze(context.Background(), "   ", testState())

	if result.Emotion.Primary != model.EmotionNeutral {
		t.Errorf("Expected neutral, got %s", result.Emotion.Primary)
	}
	if result.BusinessImpact.ImpactLevel != model.ImpactLow {
		t.Errorf("Expected low impact, got %s", result.BusinessImpact.ImpactLevel)
	}
	if result.BusinessImpact.FinancialImpact != model.FinancialNone {
		t.Errorf("Expected none financial, got %s", result.BusinessImpact.FinancialImpact)
	}
	if result.Summary == "" {
		t.Error("Expected summary")
	}
	// 空消息也必须对齐完整跟踪列表
	if len(result.ObjectiveProgress) != 2 {
		t.Errorf("Expected 2 objective entries, got %d", len(result.ObjectiveProgress))
	}
	t.Logf("✓ 空消息产出中性低置信分析, 目标条目=%d", len(result.ObjectiveProgress))
}

func TestAnalyzeAgreementCompletesObjective(t *testing.T) {
	a := rulesOnly()
	result := a.Analyze(context.Background(), "Estoy de acuerdo, acepto los términos propuestos", testState())

	if result.Emotion.Primary != model.EmotionPositive {
		t.Errorf("Emotion = %s, want positive", result.Emotion.Primary)
	}
	for _, p := range result.ObjectiveProgress {
		if p.CompletionPercentage != 90 {
			t.Errorf("Objective %q = %d%%, want 90", p.ObjectiveText, p.CompletionPercentage)
		}
		if !p.IsFullyCompleted {
			t.Errorf("Objective %q should be fully completed", p.ObjectiveText)
		}
	}
	if len(result.EndConditionStatus) != 1 {
		t.Fatalf("Expected 1 end condition, got %d", len(result.EndConditionStatus))
	}
	ec := result.EndConditionStatus[0]
	if !ec.IsMet {
		t.Error("Agreement end condition should be met")
	}
	if ec.Likelihood < 0.9 {
		t.Errorf("Likelihood = %.2f, want >= 0.9", ec.Likelihood)
	}
	t.Logf("✓ 接受用语: 目标90%% 完成, 结束条件满足 (%.1f)", ec.Likelihood)
}

func TestAnalyzeFinancialExtraction(t *testing.T) {
	a := rulesOnly()
	msg := "Buscamos $5M en nuestra Serie A, con 200K usuarios y crecimiento del 30% mensual"
	result := a.Analyze(context.Background(), msg, testState())

	mentions := result.KeyPoints.FinancialMentions
	if len(mentions) < 3 {
		t.Fatalf("Expected >= 3 financial mentions, got %v", mentions)
	}
	found := map[string]bool{}
	for _, m := range mentions {
		found[m] = true
	}
	for _, want := range []string{"$5M", "30%", "Serie A"} {
		if !found[want] {
			t.Errorf("Missing mention %q in %v", want, mentions)
		}
	}
	if result.BusinessImpact.FinancialImpact != model.FinancialHigh {
		t.Errorf("FinancialImpact = %s, want high", result.BusinessImpact.FinancialImpact)
	}
	t.Logf("✓ 财务提及: %v, 财务影响=%s", mentions, result.BusinessImpact.FinancialImpact)
}

func TestAnalyzeUrgency(t *testing.T) {
	a := rulesOnly()
	tests := []struct {
		message string
		want    model.UrgencyLevel
	}{
		{"Necesito ya una decisión, es urgente", model.UrgencyImmediate},
		{"Deberíamos cerrar esto cuanto antes", model.UrgencyHigh},
		{"Revisemos el plan de producto", model.UrgencyMedium},
	}
	for _, tt := range tests {
		result := a.Analyze(context.Background(), tt.message, testState())
		if result.BusinessImpact.UrgencyLevel != tt.want {
			t.Errorf("%q → urgency %s, want %s", tt.message, result.BusinessImpact.UrgencyLevel, tt.want)
		}
	}
	t.Logf("✓ 紧迫度分层正确")
}

func TestObjectiveTrackingCap(t *testing.T) {
	a := rulesOnly()
	state := testState()
	state.UserObjectives = []string{"obj1", "obj2", "obj3", "obj4", "obj5"}

	result := a.Analyze(context.Background(), "Entiendo la situación actual", state)
	if len(result.ObjectiveProgress) != model.MaxTrackedObjectives {
		t.Errorf("Tracked %d objectives, want %d", len(result.ObjectiveProgress), model.MaxTrackedObjectives)
	}
	for _, p := range result.ObjectiveProgress {
		if p.CompletionPercentage != 30 {
			t.Errorf("Objective %q = %d%%, want 30 (comprensión)", p.ObjectiveText, p.CompletionPercentage)
		}
	}
	t.Logf("✓ 目标跟踪截断到 %d 条", model.MaxTrackedObjectives)
}

func TestAnalyzeLLMSuccess(t *testing.T) {
	mock := NewMockLLMClient()
	mock.ResponseAnalysis = &model.MessageAnalysis{
		Emotion: model.EmotionAnalysis{
			Primary:    model.EmotionFrustrated,
			Confidence: 1.7, // 越界，应被钳制
			Indicators: []string{"urgente"},
		},
		BusinessImpact: model.BusinessImpact{
			ImpactLevel:         model.ImpactHigh,
			FinancialImpact:     model.FinancialMedium,
			StrategicImportance: model.ImpactHigh,
			UrgencyLevel:        model.UrgencyHigh,
		},
		ObjectiveProgress: []model.ObjectiveProgress{
			{ObjectiveText: "Conseguir la inversión Serie A", CompletionPercentage: 150},
		},
		Summary:             "Usuario presiona por una decisión",
		RecommendedApproach: "Pedir tiempo para revisar los números",
	}
	a := New(config.AnalyzerConfig{EnableLLM: true}, mock)

	result := a.Analyze(context.Background(), "Necesito la decisión urgente", testState())
	if mock.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount)
	}
	if result.Emotion.Primary != model.EmotionFrustrated {
		t.Errorf("Emotion = %s, want frustrated (LLM path)", result.Emotion.Primary)
	}
	if result.Emotion.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want clamped to 1.0", result.Emotion.Confidence)
	}
	if result.ObjectiveProgress[0].CompletionPercentage != 100 {
		t.Errorf("Completion = %d, want clamped to 100", result.ObjectiveProgress[0].CompletionPercentage)
	}
	if !result.ObjectiveProgress[0].IsFullyCompleted {
		t.Error("100% should imply fully completed")
	}
	// 生成式路径也要补齐缺失的跟踪目标
	if len(result.ObjectiveProgress) != 2 {
		t.Errorf("Expected 2 aligned objectives, got %d", len(result.ObjectiveProgress))
	}
	t.Logf("✓ LLM路径: 情绪=%s 置信=%.1f 进度钳制到%d%%",
		result.Emotion.Primary, result.Emotion.Confidence, result.ObjectiveProgress[0].CompletionPercentage)
}

func TestAnalyzeLLMFailureFallsBack(t *testing.T) {
	mock := NewMockLLMClient()
	mock.ShouldFail = true
	a := New(config.AnalyzerConfig{EnableLLM: true}, mock)

	result := a.Analyze(context.Background(), "Perfecto, acepto la propuesta", testState())
	if mock.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount)
	}
	// 降级后仍然是完整分析，且规则策略认出积极情绪
	if result.Emotion.Primary != model.EmotionPositive {
		t.Errorf("Fallback emotion = %s, want positive", result.Emotion.Primary)
	}
	if result.Summary == "" {
		t.Error("Fallback must still produce a summary")
	}
	t.Logf("✓ LLM失败静默降级到规则策略: %s", result.Emotion.Primary)
}

func TestAnalyzeMalformedLLMOutputFallsBack(t *testing.T) {
	mock := NewMockLLMClient()
	mock.ResponseRaw = `{"esto no es": "un análisis válido"`
	a := New(config.AnalyzerConfig{EnableLLM: true}, mock)

	result := a.Analyze(context.Background(), "Propongo revisar el roadmap", testState())
	if result.Emotion.Primary != model.EmotionConfident {
		t.Errorf("Fallback emotion = %s, want confident", result.Emotion.Primary)
	}
	t.Logf("✓ 畸形输出降级成功")
}

func TestAnalyzeLLMDisabledSkipsClient(t *testing.T) {
	mock := NewMockLLMClient()
	a := New(config.AnalyzerConfig{EnableLLM: false}, mock)

	a.Analyze(context.Background(), "Hola", testState())
	if mock.CallCount != 0 {
		t.Errorf("CallCount = %d, want 0 when LLM disabled", mock.CallCount)
	}
	t.Logf("✓ EnableLLM=false 不触碰客户端")
}

func TestQuickEmotion(t *testing.T) {
	if got := QuickEmotion("Esto es inaceptable"); got != model.EmotionAggressive {
		t.Errorf("QuickEmotion = %s, want aggressive", got)
	}
	if got := QuickEmotion("buenos días"); got != model.EmotionNeutral {
		t.Errorf("QuickEmotion = %s, want neutral", got)
	}
	t.Logf("✓ QuickEmotion 词表探测正确")
}
