package analyzer

import (
	"fmt"
	"strings"

	"exec-sim/server/internal/model"
)

// analyzeRules 确定性规则策略。
// 契约：对任意输入都不失败，包括空串、无命中词、超长文本。
// 输出与生成式策略同形，所有有界字段已钳制。
func (a *Analyzer) analyzeRules(userMessage string, state *model.SessionState) model.MessageAnalysis {
	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		// 空消息：低置信度的中性分析，不是错误。
		return clampAnalysis(model.MessageAnalysis{
			Emotion: model.EmotionAnalysis{
				Primary:    model.EmotionNeutral,
				Confidence: 0.3,
				Indicators: []string{},
			},
			BusinessImpact: model.BusinessImpact{
				ImpactLevel:         model.ImpactLow,
				FinancialImpact:     model.FinancialNone,
				StrategicImportance: model.ImpactLow,
				UrgencyLevel:        model.UrgencyLow,
			},
			Summary:             "Mensaje vacío, sin contenido analizable",
			RecommendedApproach: "Solicitar al usuario que elabore su mensaje",
		}, state)
	}

	lower := strings.ToLower(trimmed)

	emotion, confidence, indicators := detectEmotion(lower)
	keyPoints := extractKeyPoints(trimmed, lower)

	return clampAnalysis(model.MessageAnalysis{
		Emotion: model.EmotionAnalysis{
			Primary:    emotion,
			Confidence: confidence,
			Indicators: indicators,
		},
		KeyPoints: keyPoints,
		BusinessImpact: model.BusinessImpact{
			ImpactLevel:         assessImpact(lower),
			FinancialImpact:     assessFinancialImpact(lower),
			StrategicImportance: assessStrategicImportance(lower),
			UrgencyLevel:        assessUrgency(lower),
			RiskFactors:         matchRisks(lower),
			Opportunities:       matchOpportunities(lower),
		},
		ObjectiveProgress:   assessObjectives(lower, trackedObjectives(state)),
		EndConditionStatus:  assessEndConditions(lower, trackedEndConditions(state)),
		Summary:             summarizeMessage(trimmed),
		RecommendedApproach: recommendApproach(lower, keyPoints),
	}, state)
}

// detectEmotion 按词表优先级匹配情绪。无命中时为中性、0.6 置信度。
func detectEmotion(lower string) (model.Emotion, float64, []string) {
	for _, cue := range emotionCues {
		var hits []string
		for _, w := range cue.Words {
			if strings.Contains(lower, w) {
				hits = append(hits, fmt.Sprintf("%s (indica %s)", w, cue.Emotion))
			}
		}
		if len(hits) > 0 {
			return cue.Emotion, cue.Confidence, hits
		}
	}
	return model.EmotionNeutral, 0.6, []string{}
}

func extractKeyPoints(original, lower string) model.KeyPoints {
	return model.KeyPoints{
		MainTopics:        matchCategoriesTopic(lower),
		FinancialMentions: extractFinancialMentions(original, lower),
		StrategicConcepts: matchCategoriesStrategic(lower),
		Stakeholders:      matchCategoriesStakeholder(lower),
		ActionItems:       matchCategoriesAction(lower),
		ConcernsRaised:    matchConcerns(lower),
	}
}

// extractFinancialMentions 用正则抽取金额、百分比、融资轮次与用户指标。
func extractFinancialMentions(original, lower string) []string {
	var mentions []string
	mentions = append(mentions, moneyRe.FindAllString(original, -1)...)
	mentions = append(mentions, percentRe.FindAllString(original, -1)...)
	for _, m := range fundingRe.FindAllString(original, -1) {
		// 规范为 "Serie X" 形式
		fields := strings.Fields(strings.ToLower(m))
		mentions = append(mentions, "Serie "+strings.ToUpper(fields[len(fields)-1]))
	}
	mentions = append(mentions, userMetricRe.FindAllString(original, -1)...)
	return model.DedupStrings(mentions)
}

func matchCategoriesTopic(lower string) []string {
	var out []string
	for _, cue := range topicCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Topic)
		}
	}
	return out
}

func matchCategoriesStrategic(lower string) []string {
	var out []string
	for _, cue := range strategicCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Concept)
		}
	}
	return out
}

func matchCategoriesStakeholder(lower string) []string {
	var out []string
	for _, cue := range stakeholderCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Stakeholder)
		}
	}
	return out
}

func matchCategoriesAction(lower string) []string {
	var out []string
	for _, cue := range actionCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Action)
		}
	}
	return out
}

func matchConcerns(lower string) []string {
	var out []string
	for _, cue := range concernCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Concern)
		}
	}
	return out
}

func matchRisks(lower string) []string {
	var out []string
	for _, cue := range riskCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Risk)
		}
	}
	return out
}

func matchOpportunities(lower string) []string {
	var out []string
	for _, cue := range opportunityCues {
		if containsAny(lower, cue.Words) {
			out = append(out, cue.Opportunity)
		}
	}
	return out
}

func assessImpact(lower string) model.ImpactLevel {
	switch {
	case containsAny(lower, impactCriticalWords):
		return model.ImpactCritical
	case containsAny(lower, impactHighWords):
		return model.ImpactHigh
	case containsAny(lower, impactMediumWords):
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

func assessFinancialImpact(lower string) model.FinancialImpact {
	switch {
	case containsAny(lower, financialHighWords):
		return model.FinancialHigh
	case containsAny(lower, financialMediumWords):
		return model.FinancialMedium
	case containsAny(lower, financialLowWords):
		return model.FinancialLow
	default:
		return model.FinancialNone
	}
}

func assessStrategicImportance(lower string) model.ImpactLevel {
	switch {
	case containsAny(lower, strategicCriticalWords):
		return model.ImpactCritical
	case containsAny(lower, strategicHighWords):
		return model.ImpactHigh
	case containsAny(lower, strategicMediumWords):
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

func assessUrgency(lower string) model.UrgencyLevel {
	switch {
	case containsAny(lower, urgencyImmediateWords):
		return model.UrgencyImmediate
	case containsAny(lower, urgencyHighWords):
		return model.UrgencyHigh
	default:
		return model.UrgencyMedium
	}
}

// assessObjectives 目标进度分层：完成词 90%，提案词 60%，理解词 30%，否则 0%。
func assessObjectives(lower string, objectives []string) []model.ObjectiveProgress {
	progress := make([]model.ObjectiveProgress, 0, len(objectives))
	for _, obj := range objectives {
		p := model.ObjectiveProgress{ObjectiveText: obj}

		switch {
		case containsAny(lower, objectiveDoneWords):
			p.CompletionPercentage = 90
			p.Evidence = []string{"indicadores de aceptación o finalización"}
			p.RemainingRequirements = []string{}
		case containsAny(lower, objectiveProposalWords):
			p.CompletionPercentage = 60
			p.Evidence = []string{"propuesta o plan presentado"}
			p.RemainingRequirements = []string{"necesita aceptación de la contraparte"}
		case containsAny(lower, objectiveStartedWords):
			p.CompletionPercentage = 30
			p.Evidence = []string{"comprensión del tema demostrada"}
			p.RemainingRequirements = []string{"avanzar de la comprensión a la acción"}
		default:
			p.CompletionPercentage = 0
			p.Evidence = []string{}
			p.RemainingRequirements = []string{obj}
		}

		p.IsFullyCompleted = p.CompletionPercentage >= 90
		progress = append(progress, p)
	}
	return progress
}

// assessEndConditions 协议类结束条件：条件文本提到 acuerdo/trato 且用户用了接受用语即判满足。
func assessEndConditions(lower string, conditions []string) []model.EndConditionStatus {
	status := make([]model.EndConditionStatus, 0, len(conditions))
	for _, cond := range conditions {
		condLower := strings.ToLower(cond)
		met := false
		likelihood := 0.3
		if strings.Contains(condLower, "acuerdo") || strings.Contains(condLower, "trato") {
			if containsAny(lower, agreementWords) {
				met = true
				likelihood = 0.9
			} else if containsAny(lower, objectiveProposalWords) {
				likelihood = 0.5
			}
		}
		status = append(status, model.EndConditionStatus{
			ConditionText: cond,
			IsMet:         met,
			Likelihood:    likelihood,
		})
	}
	return status
}

// summarizeMessage 摘要取消息前 100 个字符（按 rune 截断，避免切断多字节字符）。
func summarizeMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) > 100 {
		return fmt.Sprintf("Usuario expresó: %s...", string(runes[:100]))
	}
	return fmt.Sprintf("Usuario expresó: %s", msg)
}

func recommendApproach(lower string, kp model.KeyPoints) string {
	switch {
	case containsAny(lower, []string{"preocupa", "problema"}):
		return "Abordar preocupaciones con empatía y soluciones concretas"
	case len(kp.FinancialMentions) > 0:
		return fmt.Sprintf("Profundizar en los supuestos detrás de las cifras mencionadas (%s)",
			strings.Join(firstN(kp.FinancialMentions, 2), ", "))
	case containsAny(lower, []string{"propongo", "sugiero"}):
		return "Evaluar propuesta y hacer preguntas de seguimiento"
	default:
		return "Mantener conversación productiva y explorar detalles"
	}
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
