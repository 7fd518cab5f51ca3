package analyzer

import (
	"fmt"

	"exec-sim/server/internal/model"
)

// trackedObjectives 返回进度跟踪对象：用户目标的前几条。
func trackedObjectives(state *model.SessionState) []string {
	objs := state.UserObjectives
	if len(objs) > model.MaxTrackedObjectives {
		objs = objs[:model.MaxTrackedObjectives]
	}
	return objs
}

func trackedEndConditions(state *model.SessionState) []string {
	conds := state.EndConditions
	if len(conds) > model.MaxTrackedEndConds {
		conds = conds[:model.MaxTrackedEndConds]
	}
	return conds
}

// clampAnalysis 把一份分析结果规范到契约形状。两条策略路径都要经过这里：
// 枚举收敛到合法取值、数值钳制、列表去重、目标/结束条件与跟踪集合对齐。
func clampAnalysis(a model.MessageAnalysis, state *model.SessionState) model.MessageAnalysis {
	if !model.ValidEmotion(a.Emotion.Primary) {
		a.Emotion.Primary = model.EmotionNeutral
	}
	a.Emotion.Confidence = model.ClampFloat(a.Emotion.Confidence, 0, 1)
	a.Emotion.Indicators = model.DedupStrings(a.Emotion.Indicators)

	a.KeyPoints.MainTopics = model.DedupStrings(a.KeyPoints.MainTopics)
	a.KeyPoints.FinancialMentions = model.DedupStrings(a.KeyPoints.FinancialMentions)
	a.KeyPoints.StrategicConcepts = model.DedupStrings(a.KeyPoints.StrategicConcepts)
	a.KeyPoints.Stakeholders = model.DedupStrings(a.KeyPoints.Stakeholders)
	a.KeyPoints.ActionItems = model.DedupStrings(a.KeyPoints.ActionItems)
	a.KeyPoints.ConcernsRaised = model.DedupStrings(a.KeyPoints.ConcernsRaised)

	if !model.ValidImpact(a.BusinessImpact.ImpactLevel) {
		a.BusinessImpact.ImpactLevel = model.ImpactLow
	}
	if !model.ValidFinancialImpact(a.BusinessImpact.FinancialImpact) {
		a.BusinessImpact.FinancialImpact = model.FinancialNone
	}
	if !model.ValidImpact(a.BusinessImpact.StrategicImportance) {
		a.BusinessImpact.StrategicImportance = model.ImpactLow
	}
	if !model.ValidUrgency(a.BusinessImpact.UrgencyLevel) {
		a.BusinessImpact.UrgencyLevel = model.UrgencyLow
	}
	a.BusinessImpact.RiskFactors = model.DedupStrings(a.BusinessImpact.RiskFactors)
	a.BusinessImpact.Opportunities = model.DedupStrings(a.BusinessImpact.Opportunities)

	a.ObjectiveProgress = alignObjectives(a.ObjectiveProgress, trackedObjectives(state))
	a.EndConditionStatus = alignEndConditions(a.EndConditionStatus, trackedEndConditions(state))

	if a.Summary == "" {
		a.Summary = "Sin resumen disponible"
	}
	if a.RecommendedApproach == "" {
		a.RecommendedApproach = "Mantener conversación productiva y explorar detalles"
	}
	return a
}

// alignObjectives 让进度列表与跟踪目标一一对应：多余的丢弃，缺失的补零进度。
// 百分比钳制到 [0,100]，完成标志与 ≥90% 强一致。
func alignObjectives(progress []model.ObjectiveProgress, objectives []string) []model.ObjectiveProgress {
	byText := make(map[string]model.ObjectiveProgress, len(progress))
	for _, p := range progress {
		byText[p.ObjectiveText] = p
	}

	aligned := make([]model.ObjectiveProgress, 0, len(objectives))
	for i, obj := range objectives {
		p, ok := byText[obj]
		if !ok && i < len(progress) {
			// 生成式输出有时会改写目标文本；按位置兜底对应。
			p = progress[i]
			p.ObjectiveText = obj
			ok = true
		}
		if !ok {
			p = model.ObjectiveProgress{
				ObjectiveText:         obj,
				Evidence:              []string{},
				RemainingRequirements: []string{obj},
			}
		}
		p.CompletionPercentage = model.ClampInt(p.CompletionPercentage, 0, 100)
		p.IsFullyCompleted = p.CompletionPercentage >= 90
		p.Evidence = model.DedupStrings(p.Evidence)
		p.RemainingRequirements = model.DedupStrings(p.RemainingRequirements)
		aligned = append(aligned, p)
	}
	return aligned
}

func alignEndConditions(status []model.EndConditionStatus, conditions []string) []model.EndConditionStatus {
	byText := make(map[string]model.EndConditionStatus, len(status))
	for _, s := range status {
		byText[s.ConditionText] = s
	}

	aligned := make([]model.EndConditionStatus, 0, len(conditions))
	for i, cond := range conditions {
		s, ok := byText[cond]
		if !ok && i < len(status) {
			s = status[i]
			s.ConditionText = cond
			ok = true
		}
		if !ok {
			s = model.EndConditionStatus{ConditionText: cond, Likelihood: 0.3}
		}
		s.Likelihood = model.ClampFloat(s.Likelihood, 0, 1)
		aligned = append(aligned, s)
	}
	return aligned
}

// validateShape 检查生成式输出的结构完整性，缺了就整体回退规则策略。
func validateShape(a model.MessageAnalysis) error {
	if a.Emotion.Primary == "" {
		return fmt.Errorf("falta emotion_analysis.primary_emotion")
	}
	if a.BusinessImpact.ImpactLevel == "" {
		return fmt.Errorf("falta business_impact.impact_level")
	}
	if a.Summary == "" {
		return fmt.Errorf("falta summary")
	}
	return nil
}
