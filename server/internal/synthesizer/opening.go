package synthesizer

import (
	"strings"

	"exec-sim/server/internal/model"
)

// ScenarioType 场景类型，按场景描述的关键词探测。
type ScenarioType string

const (
	ScenarioMerger  ScenarioType = "merger-negotiation"
	ScenarioCrisis  ScenarioType = "crisis-leadership"
	ScenarioPitch   ScenarioType = "startup-pitch"
	ScenarioDefault ScenarioType = "default"
)

// DetectScenarioType 从场景描述推断场景类型。
func DetectScenarioType(scenarioContext string) ScenarioType {
	lower := strings.ToLower(scenarioContext)
	switch {
	case containsAny(lower, []string{"fusión", "adquisición", "merger", "m&a", "acquisition"}):
		return ScenarioMerger
	case containsAny(lower, []string{"crisis", "reputación", "problema", "emergency"}):
		return ScenarioCrisis
	case containsAny(lower, []string{"pitch", "inversión", "startup", "financiamiento", "funding"}):
		return ScenarioPitch
	default:
		return ScenarioDefault
	}
}

// scenarioTemplates 每类场景的脚本化回复序列，按用户轮数推进。
// 开场白取第一条；会话启动时对手先发言就从这里来。
var scenarioTemplates = map[ScenarioType][]model.CounterpartResponse{
	ScenarioMerger: {
		{
			Content:         "Buenos días. Aprecio su interés en nuestra empresa. Sin embargo, antes de discutir valoraciones, necesito entender su visión estratégica para la integración. ¿Cómo planean mantener nuestra cultura de innovación y velocidad de desarrollo?",
			Emotion:         model.RespNeutral,
			ConfidenceLevel: 8,
			KeyPoints:       []string{"visión estratégica", "cultura de innovación", "velocidad de desarrollo"},
			BusinessImpact:  model.ImpactHigh,
		},
		{
			Content:         "Entiendo su propuesta, pero los múltiplos que mencionan están por debajo del mercado. Empresas similares en LATAM se han vendido a 8-10x revenue. Tenemos métricas sólidas: 2.3M usuarios activos, crecimiento 30% trimestral. ¿Han considerado el valor estratégico de nuestra base de datos?",
			Emotion:         model.RespSkeptical,
			ConfidenceLevel: 9,
			KeyPoints:       []string{"múltiplos de mercado", "métricas de crecimiento", "valor estratégico"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Me gusta su enfoque colaborativo. Pero tengo preocupaciones específicas sobre retención de talento. Mi equipo de blockchain está recibiendo ofertas de Big Tech. Si perdemos estos desarrolladores clave, la integración será un desastre. ¿Qué paquete de retención proponen?",
			Emotion:         model.RespConcerned,
			ConfidenceLevel: 7,
			KeyPoints:       []string{"retención de talento", "equipo blockchain", "paquete de retención"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Excelente. Los contratos de retención suenan razonables. Ahora sobre governance: necesito mantener autonomía operacional por 18 meses. También es crucial respetar nuestra cultura startup. ¿Cómo manejarán la integración con sus procesos corporativos?",
			Emotion:         model.RespEncouraging,
			ConfidenceLevel: 8,
			KeyPoints:       []string{"autonomía operacional", "cultura startup", "procesos corporativos"},
			BusinessImpact:  model.ImpactHigh,
		},
	},
	ScenarioCrisis: {
		{
			Content:         "CEO, la situación está escalando rápidamente. Los medios están pidiendo declaraciones y nuestros stakeholders principales están preocupados. Tenemos 2 horas antes de la reunión de emergencia con la Junta. ¿Cuál es nuestra estrategia de comunicación inmediata?",
			Emotion:         model.RespConcerned,
			ConfidenceLevel: 9,
			KeyPoints:       []string{"escalación rápida", "medios", "stakeholders", "estrategia de comunicación"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Entiendo la necesidad de transparencia, pero debemos ser estratégicos. Nuestros competidores van a capitalizar esto. Ya vi movimientos en redes sociales. ¿Cómo vamos a counter-narrativar? ¿Y qué hacemos con los clientes enterprise que tienen contratos de $50M en riesgo?",
			Emotion:         model.RespSkeptical,
			ConfidenceLevel: 8,
			KeyPoints:       []string{"transparencia estratégica", "competidores", "clientes enterprise"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Buena estrategia de comunicación proactiva. Pero la junta está nerviosa. El Chairman pregunta si necesitamos consultoría externa para el recovery plan. ¿Cómo manejo esa conversación sin que parezca que estamos despidiendo gente en crisis?",
			Emotion:         model.RespNeutral,
			ConfidenceLevel: 7,
			KeyPoints:       []string{"junta nerviosa", "consultoría externa", "recovery plan"},
			BusinessImpact:  model.ImpactHigh,
		},
		{
			Content:         "Sólido plan. Ya convoqué al equipo de comunicaciones. Una última preocupación: dos clientes enterprise pidieron reuniones urgentes. Claramente van a renegociar términos o cancelar. ¿Cómo manejo estas conversaciones sin comprometer más revenue?",
			Emotion:         model.RespEncouraging,
			ConfidenceLevel: 8,
			KeyPoints:       []string{"equipo de comunicaciones", "clientes enterprise", "renegociación"},
			BusinessImpact:  model.ImpactCritical,
		},
	},
	ScenarioPitch: {
		{
			Content:         "Bienvenidos a nuestro fund. Hemos revisado su deck y su propuesta nos interesa. Pero hemos visto muchos 'Netflix de la educación'. ¿Qué hace realmente diferente a su plataforma? Y más importante: ¿cómo llegan a unit economics rentables con su base actual de usuarios?",
			Emotion:         model.RespSkeptical,
			ConfidenceLevel: 9,
			KeyPoints:       []string{"diferenciación", "unit economics", "rentabilidad"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Interesante el modelo B2B2B con universidades. Pero LATAM es complicado, hemos visto startups quebrar por payments y regulación. ¿Cómo manejan las diferencias entre México y mercados como Colombia? Necesito ver más tracción antes de $5M.",
			Emotion:         model.RespConcerned,
			ConfidenceLevel: 7,
			KeyPoints:       []string{"modelo B2B2B", "retos regulatorios", "tracción"},
			BusinessImpact:  model.ImpactHigh,
		},
		{
			Content:         "Me gusta la tracción con las universidades. Logos fuertes. Pero $20M pre-money parece alto para su etapa. Valoraciones han caído 40% este año. ¿Estarían abiertos a $15M pre-money? Y necesito clarity: ¿cuándo necesitarán Serie B?",
			Emotion:         model.RespNeutral,
			ConfidenceLevel: 8,
			KeyPoints:       []string{"tracción universitaria", "valoración", "Serie B timeline"},
			BusinessImpact:  model.ImpactCritical,
		},
		{
			Content:         "Razonable roadmap de 18 meses. Última pregunta antes de partners: ¿cuál es su strategy si un jugador grande lanza algo similar gratis? La defensibilidad es clave. ¿Su moat está en contenido, datos de estudiantes, o relaciones universitarias?",
			Emotion:         model.RespEncouraging,
			ConfidenceLevel: 9,
			KeyPoints:       []string{"roadmap", "defensibilidad", "moat estratégico"},
			BusinessImpact:  model.ImpactCritical,
		},
	},
}

var defaultTemplate = model.CounterpartResponse{
	Content:         "Entiendo su punto de vista. ¿Podría elaborar más sobre los aspectos específicos que considera más importantes?",
	Emotion:         model.RespNeutral,
	ConfidenceLevel: 6,
	KeyPoints:       []string{"comprensión", "elaboración", "aspectos específicos"},
	BusinessImpact:  model.ImpactMedium,
}

// ScriptedResponse 按场景类型与用户轮数取脚本化回复，超出序列取最后一条。
// 人格调制与跟进问题在脚本之上照常生效。
func ScriptedResponse(state *model.SessionState) model.CounterpartResponse {
	templates := scenarioTemplates[DetectScenarioType(state.ScenarioContext)]
	if len(templates) == 0 {
		return finishScripted(defaultTemplate, state)
	}
	idx := state.UserTurnCount() - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(templates) {
		idx = len(templates) - 1
	}
	return finishScripted(templates[idx], state)
}

// OpeningLine 会话启动时对手的开场白：脚本序列的第一条。
func OpeningLine(state *model.SessionState) model.CounterpartResponse {
	templates := scenarioTemplates[DetectScenarioType(state.ScenarioContext)]
	if len(templates) == 0 {
		return finishScripted(defaultTemplate, state)
	}
	return finishScripted(templates[0], state)
}

func finishScripted(tpl model.CounterpartResponse, state *model.SessionState) model.CounterpartResponse {
	resp := tpl
	resp.KeyPoints = append([]string(nil), tpl.KeyPoints...)

	content, emotion, bump := applyPersonality(resp.Content, resp.Emotion, state)
	resp.Content = content
	resp.Emotion = emotion
	resp.ConfidenceLevel = model.ClampInt(resp.ConfidenceLevel+bump, 1, 10)

	switch resp.BusinessImpact {
	case model.ImpactCritical:
		resp.SuggestedFollowUp = "¿Cómo propone mitigar los riesgos principales que hemos identificado?"
	case model.ImpactHigh:
		resp.SuggestedFollowUp = "¿Cuáles son los próximos pasos concretos que sugiere?"
	default:
		resp.SuggestedFollowUp = "¿Hay algún aspecto adicional que debamos considerar?"
	}
	return resp
}
