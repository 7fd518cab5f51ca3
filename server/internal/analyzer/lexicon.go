package analyzer

import (
	"regexp"

	"exec-sim/server/internal/model"
)

// 规则策略的词表与正则。模拟对话以西语商务场景为主，
// 词表同时收录常见的英语混用词（LATAM 创投语境里两者混着说）。
// 表在包加载时枚举一次，不在每次调用时重建。

// emotionCues 情绪关键词表。按优先级顺序匹配：前面的情绪先命中先赢。
var emotionCues = []struct {
	Emotion    model.Emotion
	Words      []string
	Confidence float64
}{
	{model.EmotionAggressive, []string{"inaceptable", "exijo", "absurdo", "ridículo", "esto es una pérdida de tiempo"}, 0.85},
	{model.EmotionFrustrated, []string{"frustrado", "molesto", "urgente", "inmediatamente", "necesito ya", "no estoy de acuerdo"}, 0.8},
	{model.EmotionPositive, []string{"perfecto", "excelente", "genial", "acepto", "de acuerdo", "fantástico", "me parece bien"}, 0.9},
	{model.EmotionCollaborative, []string{"juntos", "colaborar", "trabajemos", "en conjunto", "alianza", "partnership"}, 0.8},
	{model.EmotionConfident, []string{"propongo", "sugiero", "mi plan", "estrategia", "confío", "estoy seguro", "creo que"}, 0.8},
	{model.EmotionHesitant, []string{"no estoy seguro", "tal vez", "quizás", "no sé", "déjeme pensarlo", "dudo"}, 0.75},
	{model.EmotionNegative, []string{"preocupa", "problema", "difícil", "riesgo", "rechazo", "imposible", "preocupación"}, 0.85},
}

// 财务提及的抽取正则：金额、百分比、融资轮次、用户规模指标。
var (
	moneyRe      = regexp.MustCompile(`\$\d+(?:[.,]\d+)?\s?[KMB]?`)
	percentRe    = regexp.MustCompile(`\d+(?:[.,]\d+)?%`)
	fundingRe    = regexp.MustCompile(`(?i)\bserie\s+[abc]\b`)
	userMetricRe = regexp.MustCompile(`(?i)\b\d+[KM]?\s*(?:usuarios|clientes|users)\b`)
)

// topicCues 主话题抽取：关键词组 → 话题标签。
var topicCues = []struct {
	Topic string
	Words []string
}{
	{"usuarios", []string{"usuarios", "clientes", "user"}},
	{"crecimiento", []string{"crecimiento", "growth", "expansión"}},
	{"estrategia", []string{"estrategia", "plan", "roadmap"}},
	{"equipo", []string{"equipo", "team", "personas"}},
	{"producto", []string{"producto", "product", "plataforma"}},
	{"aspectos financieros", []string{"financiero", "dinero", "precio", "valoración", "presupuesto"}},
}

// strategicCues 战略概念抽取：同义词组 → 规范概念名。
var strategicCues = []struct {
	Concept string
	Words   []string
}{
	{"plan", []string{"plan", "planificación", "planning"}},
	{"expansión", []string{"expansión", "expansion", "crecimiento"}},
	{"partnership", []string{"partnership", "alianza", "colaboración"}},
	{"mercado", []string{"mercado", "market", "segmento"}},
	{"competencia", []string{"competencia", "competition", "rival"}},
	{"roadmap", []string{"roadmap", "timeline", "hoja de ruta"}},
}

// stakeholderCues 干系人抽取。
var stakeholderCues = []struct {
	Stakeholder string
	Words       []string
}{
	{"CEO", []string{"ceo", "director ejecutivo"}},
	{"CFO", []string{"cfo", "director financiero"}},
	{"equipo", []string{"equipo", "team"}},
	{"usuarios", []string{"usuarios", "clientes", "users"}},
	{"inversores", []string{"inversores", "inversionista", "investors", "vc"}},
	{"junta directiva", []string{"junta", "directorio", "board"}},
}

// actionCues 行动项抽取：动词 → 行动标签。
var actionCues = []struct {
	Action string
	Words  []string
}{
	{"acción requerida", []string{"necesito", "debemos", "vamos a"}},
	{"implementación", []string{"implementar", "ejecutar", "hacer", "desarrollar"}},
	{"análisis", []string{"revisar", "analizar", "evaluar"}},
	{"definición", []string{"definir", "establecer", "acordar"}},
}

// concernCues 顾虑抽取。
var concernCues = []struct {
	Concern string
	Words   []string
}{
	{"preocupación identificada", []string{"preocupa", "riesgo", "problema", "preocupación"}},
	{"desafío mencionado", []string{"difícil", "complicado", "desafío", "obstáculo"}},
}

// riskCues / opportunityCues 风险与机会识别。
var riskCues = []struct {
	Risk  string
	Words []string
}{
	{"riesgo competitivo", []string{"competencia", "rival"}},
	{"riesgo financiero", []string{"presupuesto", "costo", "dinero"}},
	{"riesgo temporal", []string{"tiempo", "deadline", "plazo"}},
}

var opportunityCues = []struct {
	Opportunity string
	Words       []string
}{
	{"oportunidad de crecimiento", []string{"crecimiento", "expansión", "mercado"}},
	{"oportunidad de partnership", []string{"partnership", "alianza", "colaboración"}},
}

// 影响/紧迫度分层词表。顺序即优先级。
var (
	impactCriticalWords = []string{"crítico", "crisis", "urgente", "inmediatamente", "millones"}
	impactHighWords     = []string{"importante", "significativo", "inversión", "estratégico", "clave"}
	impactMediumWords   = []string{"necesario", "requerido", "plan"}

	financialHighWords   = []string{"$", "millones", "inversión", "serie a", "serie b", "funding", "valoración"}
	financialMediumWords = []string{"presupuesto", "costo", "precio", "revenue", "ingresos"}
	financialLowWords    = []string{"usuarios", "crecimiento"}

	strategicCriticalWords = []string{"estrategia", "visión", "misión"}
	strategicHighWords     = []string{"plan", "roadmap", "expansión"}
	strategicMediumWords   = []string{"objetivo", "meta", "proyecto"}

	urgencyImmediateWords = []string{"urgente", "inmediatamente", "necesito ya", "ahora mismo"}
	urgencyHighWords      = []string{"pronto", "rápido", "esta semana", "cuanto antes"}
)

// 目标进度分层：完成词→90%，提案词→60%，理解词→30%，否则 0%。
var (
	objectiveDoneWords     = []string{"completado", "terminado", "listo", "acepto", "acuerdo", "aprobado"}
	objectiveProposalWords = []string{"propongo", "sugiero", "plan", "vamos a"}
	objectiveStartedWords  = []string{"entiendo", "comprendo", "veo", "iniciando", "empezando"}
)

// 结束条件判定：协议类条件 + 接受用语。
var agreementWords = []string{"acepto", "de acuerdo", "aprobado", "trato hecho", "firmamos"}
