package assessment

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"exec-sim/server/internal/model"
)

// Report 会话结束后的表现评估。打分是消息特征的确定性函数，
// 同一会话重复评估得到相同结果。
type Report struct {
	OverallScore             int              `json:"overall_score"`
	StrategicThinking        int              `json:"strategic_thinking"`
	CommunicationSkills      int              `json:"communication_skills"`
	NegotiationEffectiveness int              `json:"negotiation_effectiveness"`
	EmotionalIntelligence    int              `json:"emotional_intelligence"`
	Strengths                []string         `json:"strengths"`
	ImprovementAreas         []string         `json:"improvement_areas"`
	Recommendations          []string         `json:"specific_recommendations"`
	KeyDecisionMoments       []DecisionMoment `json:"key_decision_moments"`
	DurationMinutes          int              `json:"duration_minutes"`
}

// DecisionMoment 对话中的一个关键决策时刻。
type DecisionMoment struct {
	Timestamp   string            `json:"timestamp"`
	Message     string            `json:"message"`
	ImpactLevel model.ImpactLevel `json:"impact_level"`
	Analysis    string            `json:"analysis"`
}

// Analyze 根据完整轮次历史生成表现评估。
func Analyze(turns []model.Turn, duration time.Duration) Report {
	var userMessages []string
	for _, t := range turns {
		if t.Speaker == model.SpeakerUser {
			userMessages = append(userMessages, t.Text)
		}
	}

	count := len(userMessages)
	totalLen := 0
	for _, msg := range userMessages {
		totalLen += utf8.RuneCountInString(msg)
	}
	avgLen := 0
	if count > 0 {
		avgLen = totalLen / count
	}

	// 基准分随参与度（轮数、消息长度）增长，封顶 95。
	base := 60 + count*3 + avgLen/20
	if base > 95 {
		base = 95
	}

	// 各维度在基准分附近做确定性偏移，偏移来自消息内容的哈希。
	seed := hashMessages(userMessages)
	scores := []int{
		base + int(seed%20) - 10,
		base + int(seed%15) - 7,
		base + int(seed%12) - 6,
		base + int(seed%18) - 9,
		base + int(seed%10) - 5,
	}
	for i := range scores {
		scores[i] = model.ClampInt(scores[i], 0, 100)
	}

	return Report{
		OverallScore:             scores[0],
		StrategicThinking:        scores[1],
		CommunicationSkills:      scores[2],
		NegotiationEffectiveness: scores[3],
		EmotionalIntelligence:    scores[4],
		Strengths:                strengths,
		ImprovementAreas:         improvementAreas,
		Recommendations:          recommendations,
		KeyDecisionMoments:       decisionMoments(userMessages, scores[0]),
		DurationMinutes:          int(duration.Minutes()),
	}
}

func hashMessages(messages []string) uint64 {
	h := fnv.New64a()
	for _, msg := range messages {
		h.Write([]byte(msg))
	}
	return h.Sum64()
}

// decisionMoments 取前三条用户消息作为关键时刻。
func decisionMoments(userMessages []string, overall int) []DecisionMoment {
	verdict := "mejorable"
	if overall > 70 {
		verdict = "efectiva"
	}

	var moments []DecisionMoment
	for i, msg := range userMessages {
		if i >= 3 {
			break
		}
		impact := model.ImpactMedium
		if i == 0 {
			impact = model.ImpactHigh
		}
		moments = append(moments, DecisionMoment{
			Timestamp:   fmt.Sprintf("%dmin", (i+1)*5),
			Message:     truncate(msg, 60),
			ImpactLevel: impact,
			Analysis:    fmt.Sprintf("Momento decisivo %d: Estrategia %s", i+1, verdict),
		})
	}
	return moments
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

var (
	strengths = []string{
		"Preparación sólida con contexto empresarial apropiado",
		"Comunicación directa y profesional para nivel ejecutivo",
		"Comprensión del contexto y stakeholders involucrados",
		"Enfoque estratégico en las respuestas",
		"Manejo apropiado del timing en la conversación",
	}
	improvementAreas = []string{
		"Ser más específico con métricas y datos cuantitativos",
		"Desarrollar mejor uso de silencios estratégicos",
		"Incorporar más análisis de riesgo en las propuestas",
		"Fortalecer storytelling para conexión emocional",
		"Mejorar timing para concesiones y compromisos",
	}
	recommendations = []string{
		"Estudiar casos de negociación en mercados emergentes",
		"Practicar técnicas de anchoring en negociaciones de alto valor",
		"Desarrollar framework personal para comunicación en crisis",
		"Incorporar design thinking en estrategias de transformación",
		"Fortalecer competencias en liderazgo cross-cultural",
	}
)
