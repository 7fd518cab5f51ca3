package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"exec-sim/server/internal/analyzer"
	"exec-sim/server/internal/memory"
	"exec-sim/server/internal/model"
	"exec-sim/server/internal/synthesizer"
)

// ErrEmptyMessage 是本层唯一会向调用方暴露的失败：用户消息去空白后为空。
// 分析能力的失败在分析器内部就地降级，不会走到这里。
var ErrEmptyMessage = errors.New("empty user message")

// Orchestrator 单轮处理的编排器。固定管线：校验 → 分析 → 记忆 → 合成。
// 不持有会话状态；入参按值语义对待，返回更新后的副本。
type Orchestrator struct {
	analyzer *analyzer.Analyzer
}

// New 创建编排器。
func New(a *analyzer.Analyzer) *Orchestrator {
	return &Orchestrator{analyzer: a}
}

// ProcessTurn 处理一轮用户消息，返回回复/分析/更新后记忆的三元组。
// 本层不做重试，分析器内部已经完成生成式→规则的降级。
func (o *Orchestrator) ProcessTurn(ctx context.Context, userMessage string, state *model.SessionState, insights *model.ConversationInsights) (model.TurnResult, error) {
	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		return model.TurnResult{}, ErrEmptyMessage
	}

	analysis := o.analyzer.Analyze(ctx, trimmed, state)

	// 本条消息也计入轮数：阶段推断以包含当前消息的用户轮数为准。
	userTurns := state.UserTurnCount() + 1
	updated := memory.Update(insights, analysis, userTurns)

	// 针对既往内容的提问走记忆直答，不生成新的谈判性回复。
	// 首轮没有可引用的历史，跳过。
	var response model.CounterpartResponse
	if answer := memory.CanAnswerFromMemory(trimmed, updated); answer.CanAnswer && userTurns > 1 {
		response = insightResponse(answer, updated)
	} else {
		response = synthesizer.Synthesize(trimmed, analysis, state, updated)
	}

	return model.TurnResult{
		Response:        response,
		Analysis:        analysis,
		UpdatedInsights: updated,
	}, nil
}

// OpeningLine 会话启动时对手的首句发言，历史为空时由合成器的脚本驱动。
func (o *Orchestrator) OpeningLine(state *model.SessionState) model.CounterpartResponse {
	return synthesizer.OpeningLine(state)
}

// insightResponse 用累积记忆直接回答关于既往对话的问题。
func insightResponse(answer memory.Answer, insights *model.ConversationInsights) model.CounterpartResponse {
	data := answer.RelevantData
	var content string

	switch answer.InsightType {
	case memory.InsightFinancial:
		if len(data.RelevantFinancialData) > 0 {
			content = fmt.Sprintf("Respecto a los aspectos financieros, hemos mencionado: %s. ",
				strings.Join(data.RelevantFinancialData, ", "))
		} else {
			content = "En términos financieros, hemos tocado varios aspectos importantes. "
		}
	case memory.InsightKeyPoints:
		if len(data.RelevantKeyPoints) > 0 {
			content = fmt.Sprintf("Basándome en nuestra conversación, los puntos clave que hemos discutido incluyen: %s. ",
				strings.Join(firstN(data.RelevantKeyPoints, 3), ", "))
		} else if combined := combine(data, 4); len(combined) > 0 {
			content = fmt.Sprintf("Los key findings de nuestra conversación incluyen: %s. ",
				strings.Join(combined, ", "))
		} else {
			content = "Hasta ahora hemos cubierto varios temas importantes en nuestra conversación. "
		}
	case memory.InsightStrategic:
		if len(data.RelevantKeyPoints) > 0 {
			content = fmt.Sprintf("Estratégicamente, hemos discutido: %s. ",
				strings.Join(firstN(data.RelevantKeyPoints, 3), ", "))
		} else {
			content = "Desde una perspectiva estratégica, hemos explorado varias líneas de acción. "
		}
	case memory.InsightStakeholders:
		if len(data.RelevantStakeholders) > 0 {
			content = fmt.Sprintf("Considerando los stakeholders que hemos mencionado (%s), sigamos alineando sus intereses. ",
				strings.Join(data.RelevantStakeholders, ", "))
		} else {
			content = "En cuanto a los stakeholders involucrados, hemos cubierto los principales. "
		}
	case memory.InsightActions:
		if len(data.RelevantActions) > 0 {
			content = fmt.Sprintf("Las acciones que hemos identificado incluyen: %s. ",
				strings.Join(firstN(data.RelevantActions, 3), ", "))
		} else {
			content = "En términos de acciones concretas, seguimos definiendo los próximos pasos. "
		}
	case memory.InsightConcerns:
		if len(data.RelevantConcerns) > 0 {
			content = fmt.Sprintf("Las preocupaciones que hemos registrado incluyen: %s. ",
				strings.Join(firstN(data.RelevantConcerns, 3), ", "))
		} else {
			content = "Hasta ahora no hemos registrado preocupaciones mayores. "
		}
	default:
		if combined := combine(data, 4); len(combined) > 0 {
			content = fmt.Sprintf("Revisando nuestra conversación anterior, hemos cubierto: %s. ",
				strings.Join(combined, ", "))
		} else {
			content = "En nuestra conversación previa hemos tocado varios temas importantes. "
		}
	}

	if insights.HighestImpactLevel == model.ImpactCritical {
		content += "Dado el impacto crítico de estos temas, necesitamos tomar decisiones concretas."
	} else {
		content += "¿Hay algún aspecto específico que quieras profundizar?"
	}

	impact := insights.HighestImpactLevel
	if impact == "" {
		impact = model.ImpactMedium
	}

	return model.CounterpartResponse{
		Content:           content,
		Emotion:           model.RespNeutral,
		ConfidenceLevel:   9,
		KeyPoints:         combine(data, model.MaxMemoryPreviewItems),
		BusinessImpact:    impact,
		SuggestedFollowUp: "¿Quieres que revisemos algún punto específico?",
	}
}

func combine(data memory.RelevantData, limit int) []string {
	var all []string
	all = append(all, data.RelevantKeyPoints...)
	all = append(all, data.RelevantFinancialData...)
	all = append(all, data.RelevantStakeholders...)
	all = append(all, data.RelevantActions...)
	all = model.DedupStrings(all)
	return firstN(all, limit)
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
