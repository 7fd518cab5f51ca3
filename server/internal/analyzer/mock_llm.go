package analyzer

import (
	"context"
	"encoding/json"

	"exec-sim/server/internal/llm"
	"exec-sim/server/internal/model"
)

// MockLLMClient 用于测试的 Mock LLM 客户端
type MockLLMClient struct {
	// ResponseAnalysis 指定 Complete 要返回的分析结果；为 nil 时返回默认结果。
	ResponseAnalysis *model.MessageAnalysis
	// ResponseRaw 非空时直接返回该原始串，用于模拟畸形输出。
	ResponseRaw string
	ShouldFail  bool
	CallCount   int
}

// NewMockLLMClient 创建 Mock LLM 客户端
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{}
}

// Complete 模拟 LLM Complete 方法
func (m *MockLLMClient) Complete(ctx context.Context, messages []llm.Message, schema *llm.JSONSchema) (string, error) {
	m.CallCount++

	if m.ShouldFail {
		return "", context.DeadlineExceeded
	}
	if m.ResponseRaw != "" {
		return m.ResponseRaw, nil
	}

	analysis := m.ResponseAnalysis
	if analysis == nil {
		analysis = &model.MessageAnalysis{
			Emotion: model.EmotionAnalysis{
				Primary:    model.EmotionConfident,
				Confidence: 0.8,
				Indicators: []string{"propongo (indica confident)"},
			},
			BusinessImpact: model.BusinessImpact{
				ImpactLevel:         model.ImpactMedium,
				FinancialImpact:     model.FinancialNone,
				StrategicImportance: model.ImpactMedium,
				UrgencyLevel:        model.UrgencyMedium,
			},
			Summary:             "Análisis generado para pruebas",
			RecommendedApproach: "Evaluar propuesta y hacer preguntas de seguimiento",
		}
	}

	data, _ := json.Marshal(analysis)
	return string(data), nil
}
