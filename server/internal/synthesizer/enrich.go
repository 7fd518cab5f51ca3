package synthesizer

import (
	"fmt"
	"strings"

	"exec-sim/server/internal/model"
)

// enrichFromMemory 阶段四：引用累积记忆。只有存在既往轮次时才生效。
func enrichFromMemory(content string, analysis model.MessageAnalysis, insights *model.ConversationInsights) string {
	if insights == nil || insights.UserTurnCount == 0 {
		return content
	}

	// 既往财务话题的回指：本轮也提到财务时才自然
	if len(insights.AllFinancial) > 0 && len(analysis.KeyPoints.FinancialMentions) > 0 {
		content += fmt.Sprintf(" Considerando que anteriormente discutimos %s, mantengamos esos números sobre la mesa.",
			strings.Join(firstN(insights.AllFinancial, 2), ", "))
	}

	switch insights.CurrentPhase() {
	case model.PhaseNegotiation:
		content += " Estamos en una fase crítica de la negociación."
	case model.PhaseClosing:
		content += " Nos acercamos a las decisiones finales."
	}

	if len(insights.AllConcerns) > 2 {
		content += " Veo que hemos identificado varias preocupaciones importantes que debemos resolver."
	}

	return content
}
