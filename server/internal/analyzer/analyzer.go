package analyzer

import (
	"context"
	"log"
	"strings"

	"exec-sim/server/internal/config"
	"exec-sim/server/internal/llm"
	"exec-sim/server/internal/model"
)

// Analyzer 消息分析器：双策略引擎。
// 生成式策略可用时优先；任何失败都整体降级到规则策略，
// 分析能力的缺失永远不会以错误形式向调用方暴露。
type Analyzer struct {
	cfg    config.AnalyzerConfig
	client llm.Client
}

// New 创建分析器。client 可以为 nil，此时只走规则策略。
func New(cfg config.AnalyzerConfig, client llm.Client) *Analyzer {
	return &Analyzer{cfg: cfg, client: client}
}

// Analyze 分析一条用户消息，总是返回一份完整的分析结果。
func (a *Analyzer) Analyze(ctx context.Context, userMessage string, state *model.SessionState) model.MessageAnalysis {
	if a.cfg.EnableLLM && a.client != nil {
		llmCtx := ctx
		if a.cfg.LLMTimeout > 0 {
			var cancel context.CancelFunc
			llmCtx, cancel = context.WithTimeout(ctx, a.cfg.LLMTimeout)
			defer cancel()
		}
		analysis, err := a.analyzeLLM(llmCtx, userMessage, state)
		if err == nil {
			return analysis
		}
		log.Printf("⚠️ LLM analysis failed, falling back to rules: %v", err)
	}
	return a.analyzeRules(userMessage, state)
}

// QuickEmotion 轻量情绪探测，只查词表不做完整分析。
// 合成器用它快速决定回复开场的基调。
func QuickEmotion(userMessage string) model.Emotion {
	emotion, _, _ := detectEmotion(strings.ToLower(userMessage))
	return emotion
}
