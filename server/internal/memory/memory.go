package memory

import (
	"fmt"
	"strings"

	"exec-sim/server/internal/model"
)

// Update 把一条新分析累积进会话记忆。纯函数：不修改入参，返回新副本；
// prev 为 nil 时新建。列表做保序并集去重，严重度按排序表取单调最大值，
// 主导情绪从完整情绪历史重算，阶段标签只在变化时追加。
func Update(prev *model.ConversationInsights, analysis model.MessageAnalysis, userTurns int) *model.ConversationInsights {
	next := clone(prev)
	next.UserTurnCount = userTurns

	next.AllKeyPoints = model.DedupStrings(append(next.AllKeyPoints, analysis.KeyPoints.MainTopics...))
	next.AllFinancial = model.DedupStrings(append(next.AllFinancial, analysis.KeyPoints.FinancialMentions...))
	next.AllStrategic = model.DedupStrings(append(next.AllStrategic, analysis.KeyPoints.StrategicConcepts...))
	next.AllStakeholders = model.DedupStrings(append(next.AllStakeholders, analysis.KeyPoints.Stakeholders...))
	next.AllActionItems = model.DedupStrings(append(next.AllActionItems, analysis.KeyPoints.ActionItems...))
	next.AllConcerns = model.DedupStrings(append(next.AllConcerns, analysis.KeyPoints.ConcernsRaised...))

	// 单调最大值：一旦见过 critical/immediate 就不会回退。
	if model.ImpactRank(analysis.BusinessImpact.ImpactLevel) > model.ImpactRank(next.HighestImpactLevel) {
		next.HighestImpactLevel = analysis.BusinessImpact.ImpactLevel
	}
	if model.UrgencyRank(analysis.BusinessImpact.UrgencyLevel) > model.UrgencyRank(next.PeakUrgencyLevel) {
		next.PeakUrgencyLevel = analysis.BusinessImpact.UrgencyLevel
	}

	next.EmotionHistory = append(next.EmotionHistory, analysis.Emotion.Primary)
	next.DominantEmotions = dominantEmotions(next.EmotionHistory)

	phase := model.PhaseForTurnCount(userTurns)
	if len(next.PhaseHistory) == 0 || next.PhaseHistory[len(next.PhaseHistory)-1] != phase {
		next.PhaseHistory = append(next.PhaseHistory, phase)
	}

	next.Summary = buildSummary(next, phase)
	return next
}

// clone 深拷贝，保证 Update 的纯函数契约。
func clone(prev *model.ConversationInsights) *model.ConversationInsights {
	if prev == nil {
		return &model.ConversationInsights{}
	}
	next := *prev
	next.AllKeyPoints = append([]string(nil), prev.AllKeyPoints...)
	next.AllFinancial = append([]string(nil), prev.AllFinancial...)
	next.AllStrategic = append([]string(nil), prev.AllStrategic...)
	next.AllStakeholders = append([]string(nil), prev.AllStakeholders...)
	next.AllActionItems = append([]string(nil), prev.AllActionItems...)
	next.AllConcerns = append([]string(nil), prev.AllConcerns...)
	next.EmotionHistory = append([]model.Emotion(nil), prev.EmotionHistory...)
	next.DominantEmotions = append([]model.Emotion(nil), prev.DominantEmotions...)
	next.PhaseHistory = append([]model.ConversationPhase(nil), prev.PhaseHistory...)
	return &next
}

// dominantEmotions 取出现频次最高的前 3 种情绪。
// 频次相同按首次出现的先后排序，结果稳定。
func dominantEmotions(history []model.Emotion) []model.Emotion {
	counts := make(map[model.Emotion]int, len(history))
	var firstSeen []model.Emotion
	for _, e := range history {
		if counts[e] == 0 {
			firstSeen = append(firstSeen, e)
		}
		counts[e]++
	}

	// firstSeen 已按首见顺序排列；选择排序按频次取前 3，同频保持原序。
	dominant := make([]model.Emotion, 0, model.MaxDominantEmotions)
	picked := make(map[model.Emotion]bool, model.MaxDominantEmotions)
	for len(dominant) < model.MaxDominantEmotions && len(dominant) < len(firstSeen) {
		var best model.Emotion
		bestCount := -1
		for _, e := range firstSeen {
			if picked[e] {
				continue
			}
			if counts[e] > bestCount {
				best = e
				bestCount = counts[e]
			}
		}
		picked[best] = true
		dominant = append(dominant, best)
	}
	return dominant
}

// buildSummary 确定性地重建会话摘要：阶段 + 轮数 + 前 3 条要点 + 最高影响。
func buildSummary(ci *model.ConversationInsights, phase model.ConversationPhase) string {
	topics := ci.AllKeyPoints
	if len(topics) > 3 {
		topics = topics[:3]
	}
	topicText := strings.Join(topics, ", ")
	if topicText == "" {
		topicText = "sin temas registrados"
	}
	impact := ci.HighestImpactLevel
	if impact == "" {
		impact = model.ImpactLow
	}
	return fmt.Sprintf("Conversación en fase %s con %d intercambios. Temas principales: %s. Impacto: %s.",
		phase, ci.UserTurnCount, topicText, impact)
}
