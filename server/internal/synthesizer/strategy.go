package synthesizer

import (
	"regexp"
	"strconv"
	"strings"

	"exec-sim/server/internal/model"
)

// 目标对齐策略表。规则按对手目标里的领域关键词 + 本轮分析的条件匹配，
// 命中即对草稿做确定性的前后缀改写。表驱动，不绑死在具体场景实例上。
type strategyRule struct {
	Name          string
	ObjectiveWord string
	Condition     func(analysis model.MessageAnalysis) bool
	Prefix        string
	Suffix        string
	// LowerDraft 为 true 时把原草稿首字母小写后接在前缀后面。
	LowerDraft bool
}

var strategyRules = []strategyRule{
	{
		Name:          "protective_with_data",
		ObjectiveWord: "valoración",
		Condition:     hasLargeFinancialAsk,
		Prefix:        "Basándome en nuestro track record y benchmarks de mercado, ",
		Suffix:        " Mi experiencia en métricas de mercado me dice que necesitamos ser estratégicos aquí.",
		LowerDraft:    true,
	},
	{
		Name:          "collaborative_urgent",
		ObjectiveWord: "estabilizar",
		Condition: func(a model.MessageAnalysis) bool {
			return a.BusinessImpact.UrgencyLevel == model.UrgencyImmediate
		},
		Prefix: "Compartimos esa urgencia. ",
	},
}

var askNumberRe = regexp.MustCompile(`(\d+)\s*[MK%]`)

// hasLargeFinancialAsk 财务提及里出现大额数字（>20，单位 M/K/%）。
func hasLargeFinancialAsk(analysis model.MessageAnalysis) bool {
	for _, mention := range analysis.KeyPoints.FinancialMentions {
		for _, m := range askNumberRe.FindAllStringSubmatch(mention, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 20 {
				return true
			}
		}
	}
	return false
}

// applyStrategy 阶段二：对手目标 vs 用户诉求的冲突/对齐改写。
// 返回改写后的草稿与命中的策略名（无命中时为空串）。
func applyStrategy(draft string, analysis model.MessageAnalysis, state *model.SessionState) (string, string) {
	objectives := strings.ToLower(strings.Join(state.CounterpartObjectives, " "))
	for _, rule := range strategyRules {
		if !strings.Contains(objectives, rule.ObjectiveWord) {
			continue
		}
		if !rule.Condition(analysis) {
			continue
		}
		body := draft
		if rule.LowerDraft {
			body = lowerFirst(body)
		}
		return rule.Prefix + body + rule.Suffix, rule.Name
	}
	return draft, ""
}
