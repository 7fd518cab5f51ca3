package synthesizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"exec-sim/server/internal/model"
)

// Synthesize 生成对手的下一句回复。五个阶段按固定顺序执行：
// 基础草稿选择 → 目标对齐策略 → 人格调制 → 记忆增强 → 元数据派生。
// 对任何形状完整的 MessageAnalysis 都是全函数，不会失败。
func Synthesize(userMessage string, analysis model.MessageAnalysis, state *model.SessionState, insights *model.ConversationInsights) model.CounterpartResponse {
	content := baseDraft(analysis, state)
	content, _ = applyStrategy(content, analysis, state)

	emotion := mapEmotion(analysis.Emotion.Primary)
	content, emotion, confidenceBump := applyPersonality(content, emotion, state)
	content = enrichFromMemory(content, analysis, insights)

	confidence := deriveConfidence(content, confidenceBump)

	return model.CounterpartResponse{
		Content:           content,
		Emotion:           emotion,
		ConfidenceLevel:   confidence,
		KeyPoints:         analysis.KeyPoints.MainTopics,
		BusinessImpact:    analysis.BusinessImpact.ImpactLevel,
		SuggestedFollowUp: deriveFollowUp(analysis),
	}
}

// 判定 recommendedApproach 是否够"高管水准"直接作为草稿的词表。
var (
	businessRegisterTerms = []string{
		"valoración", "revenue", "board", "stakeholder", "pipeline", "metrics",
		"due diligence", "growth", "market", "capital", "competition", "strategy",
	}
	genericFillerPhrases = []string{
		"mantener conversación", "elaborar más", "aspectos específicos", "recomiendo que",
	}
)

// baseDraft 阶段一：优先采用分析器的建议回应；不够格就按固定顺序拼装。
func baseDraft(analysis model.MessageAnalysis, state *model.SessionState) string {
	approach := analysis.RecommendedApproach
	if isExecutiveLevel(approach) {
		return approach
	}
	return composeDraft(analysis, state)
}

func isExecutiveLevel(text string) bool {
	if utf8.RuneCountInString(text) <= 80 {
		return false
	}
	lower := strings.ToLower(text)
	if !containsAny(lower, businessRegisterTerms) {
		return false
	}
	return !containsAny(lower, genericFillerPhrases)
}

// composeDraft 按固定顺序拼装：情绪开场 → 财务语境 → 战略语境 →
// 紧迫性 → 行动项 → 收尾提问。收尾提问保证内容永远非空。
func composeDraft(analysis model.MessageAnalysis, state *model.SessionState) string {
	var parts []string

	parts = append(parts, emotionalOpener(state.CounterpartRole, analysis.Emotion.Primary))

	if fin := analysis.KeyPoints.FinancialMentions; len(fin) > 0 {
		parts = append(parts, financialSentence(fin, state.ScenarioContext))
	}
	if len(analysis.KeyPoints.StrategicConcepts) > 0 {
		if s := strategicSentence(state.CounterpartObjectives); s != "" {
			parts = append(parts, s)
		}
	}
	if analysis.BusinessImpact.UrgencyLevel == model.UrgencyImmediate {
		parts = append(parts, "El timing es crucial aquí. Tenemos board meeting en dos semanas y necesitamos clarity antes de esa fecha.")
	}
	if actions := analysis.KeyPoints.ActionItems; len(actions) > 0 {
		parts = append(parts, fmt.Sprintf("Propongo que nos enfoquemos en %s. ¿Puede comprometerse a tener esos deliverables para viernes?",
			strings.Join(firstN(actions, 2), ", ")))
	}

	draft := strings.Join(parts, " ")
	if !strings.HasSuffix(strings.TrimSpace(draft), "?") {
		draft = strings.TrimSpace(draft + " ¿Cuáles son los próximos pasos concretos?")
	}
	return draft
}

// emotionalOpener 开场白按角色级别与用户情绪选择。
func emotionalOpener(role string, emotion model.Emotion) string {
	roleLower := strings.ToLower(role)
	senior := strings.Contains(roleLower, "ceo") || strings.Contains(roleLower, "founder") ||
		strings.Contains(roleLower, "fundador") || strings.Contains(roleLower, "socio")

	switch emotion {
	case model.EmotionFrustrated, model.EmotionAggressive:
		if senior {
			return "Entiendo la presión. Como founder, he pasado por situaciones similares."
		}
		return "Comparto su sentido de urgencia. La situación requiere acción inmediata."
	case model.EmotionConfident, model.EmotionPositive:
		if senior {
			return "Me gusta esa confianza. Es el tipo de mentalidad que necesitamos."
		}
		return "Su aproximación es sólida. Vamos a profundizar en los detalles."
	default:
		if senior {
			return "Aprecio la claridad de su propuesta."
		}
		return "Revisemos los elementos clave de lo que plantea."
	}
}

func financialSentence(mentions []string, scenarioContext string) string {
	context := strings.Join(firstN(mentions, 2), ", ")
	scenarioLower := strings.ToLower(scenarioContext)
	switch {
	case strings.Contains(scenarioLower, "fintech"):
		return fmt.Sprintf("Respecto a %s, nuestros benchmarks con otros jugadores de la región muestran diferentes dinámicas de valoración. Necesito entender mejor sus assumptions sobre nuestro multiple de revenue.", context)
	case strings.Contains(scenarioLower, "crisis"):
		return fmt.Sprintf("Los números que menciona (%s) coinciden con nuestro análisis interno. Ya tenemos un plan de recovery que nos lleva a break-even en Q2.", context)
	default:
		return fmt.Sprintf("Los aspectos financieros (%s) son críticos. ¿Cuál es el modelo de negocio detrás de estas proyecciones?", context)
	}
}

// strategicSentence 按对手首要目标的关键词选择战略回应。
func strategicSentence(counterpartObjectives []string) string {
	if len(counterpartObjectives) == 0 {
		return ""
	}
	primary := strings.ToLower(counterpartObjectives[0])
	switch {
	case strings.Contains(primary, "valoración"), strings.Contains(primary, "valoracion"):
		return "Mi prioridad es maximizar value para todos los stakeholders. ¿Cómo estructura su oferta para alinear incentivos a largo plazo?"
	case strings.Contains(primary, "estabilizar"):
		return "Lo crítico es stabilizar operaciones. ¿Qué level de authority tiene para implementar las medidas que necesitamos?"
	case strings.Contains(primary, "cerrar"):
		return "Para cerrar esta ronda necesito ver commitment real. ¿Cuál es su timeline para due diligence y términos definitivos?"
	}
	return ""
}

// mapEmotion 用户情绪到回复基调的固定映射表。
var emotionMapping = map[model.Emotion]model.ResponseEmotion{
	model.EmotionPositive:      model.RespEncouraging,
	model.EmotionNegative:      model.RespConcerned,
	model.EmotionFrustrated:    model.RespConcerned,
	model.EmotionConfident:     model.RespNeutral,
	model.EmotionHesitant:      model.RespEncouraging,
	model.EmotionAggressive:    model.RespSkeptical,
	model.EmotionCollaborative: model.RespEncouraging,
}

func mapEmotion(e model.Emotion) model.ResponseEmotion {
	if mapped, ok := emotionMapping[e]; ok {
		return mapped
	}
	return model.RespNeutral
}

// deriveConfidence 置信度随回复长度增长：内部 100 分制封顶 95，
// 再压缩到 [1,10]，人格调制的加成在压缩后生效。
func deriveConfidence(content string, bump int) int {
	internal := 70 + utf8.RuneCountInString(content)/20
	if internal > 95 {
		internal = 95
	}
	return model.ClampInt(internal/10+bump, 1, 10)
}

// deriveFollowUp 跟进问题按优先级选择：紧迫 > 财务 > 顾虑 > 通用。
func deriveFollowUp(analysis model.MessageAnalysis) string {
	switch {
	case analysis.BusinessImpact.UrgencyLevel == model.UrgencyImmediate:
		return "¿Cuáles son los próximos pasos inmediatos que propone?"
	case len(analysis.KeyPoints.FinancialMentions) > 0:
		return "¿Podría compartir su modelo financiero detallado y assumptions de crecimiento?"
	case len(analysis.KeyPoints.ConcernsRaised) > 0:
		return "¿Cómo propone abordar estas preocupaciones?"
	default:
		return "¿Hay algún aspecto adicional que debamos considerar?"
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

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
