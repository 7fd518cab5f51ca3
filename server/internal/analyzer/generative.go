package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"exec-sim/server/internal/llm"
	"exec-sim/server/internal/model"
)

// analyzeLLM 生成式策略：结构化抽取。任何失败（传输、超时、JSON 解析、
// 形状缺失）都以 error 返回，由上层整体回退到规则策略。
func (a *Analyzer) analyzeLLM(ctx context.Context, userMessage string, state *model.SessionState) (model.MessageAnalysis, error) {
	messages := []llm.Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: buildAnalysisPrompt(userMessage, state)},
	}

	raw, err := a.client.Complete(ctx, messages, analysisSchema())
	if err != nil {
		return model.MessageAnalysis{}, fmt.Errorf("llm complete: %w", err)
	}

	var analysis model.MessageAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return model.MessageAnalysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	if err := validateShape(analysis); err != nil {
		return model.MessageAnalysis{}, fmt.Errorf("malformed analysis: %w", err)
	}

	return clampAnalysis(analysis, state), nil
}

const analysisSystemPrompt = `Eres un analista experto en comunicación ejecutiva y negociación empresarial.
Analiza el mensaje del usuario dentro de una simulación de entrenamiento y responde únicamente con el JSON estructurado solicitado.
Sé preciso con las evidencias: cita fragmentos literales del mensaje cuando fundamentes una conclusión.`

// buildAnalysisPrompt 装配分析提示：场景、双方角色、人格滑块、
// 被跟踪的目标/结束条件、最近 5 轮对话、当前消息。
func buildAnalysisPrompt(userMessage string, state *model.SessionState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Escenario\n%s\n\n", state.ScenarioContext)
	fmt.Fprintf(&b, "Rol del usuario: %s\nRol de la contraparte: %s\n\n", state.UserRole, state.CounterpartRole)

	fmt.Fprintf(&b, "## Personalidad de la contraparte (0-100)\n")
	for _, trait := range []string{"analytical", "patience", "aggression", "flexibility"} {
		fmt.Fprintf(&b, "- %s: %d\n", trait, state.Trait(trait))
	}

	objectives := trackedObjectives(state)
	b.WriteString("\n## Objetivos del usuario a evaluar\n")
	if len(objectives) == 0 {
		b.WriteString("(ninguno)\n")
	}
	for _, obj := range objectives {
		fmt.Fprintf(&b, "- %s\n", obj)
	}

	conditions := trackedEndConditions(state)
	b.WriteString("\n## Condiciones de finalización a evaluar\n")
	if len(conditions) == 0 {
		b.WriteString("(ninguna)\n")
	}
	for _, cond := range conditions {
		fmt.Fprintf(&b, "- %s\n", cond)
	}

	b.WriteString("\n## Conversación reciente\n")
	turns := state.Turns
	if len(turns) > 5 {
		turns = turns[len(turns)-5:]
	}
	if len(turns) == 0 {
		b.WriteString("(inicio de la conversación)\n")
	}
	for _, t := range turns {
		label := "Usuario"
		if t.Speaker == model.SpeakerCounterpart {
			label = "Contraparte"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, t.Text)
	}

	fmt.Fprintf(&b, "\n## Mensaje a analizar\n%s\n", userMessage)
	return b.String()
}

// analysisSchema 返回结构化输出的 JSON Schema。
// 字段名与 model.MessageAnalysis 的 json tag 一一对应。
func analysisSchema() *llm.JSONSchema {
	enumWords := func(words ...string) map[string]any {
		return map[string]any{"type": "string", "enum": words}
	}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

	return &llm.JSONSchema{
		Name:   "message_analysis",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"emotion_analysis": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"primary_emotion": enumWords("positive", "negative", "neutral", "frustrated",
							"confident", "hesitant", "aggressive", "collaborative"),
						"confidence_score":     map[string]any{"type": "number"},
						"emotional_indicators": stringList,
					},
					"required":             []string{"primary_emotion", "confidence_score", "emotional_indicators"},
					"additionalProperties": false,
				},
				"key_points": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"main_topics":            stringList,
						"financial_mentions":     stringList,
						"strategic_concepts":     stringList,
						"stakeholders_mentioned": stringList,
						"action_items":           stringList,
						"concerns_raised":        stringList,
					},
					"required": []string{"main_topics", "financial_mentions", "strategic_concepts",
						"stakeholders_mentioned", "action_items", "concerns_raised"},
					"additionalProperties": false,
				},
				"business_impact": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"impact_level":         enumWords("low", "medium", "high", "critical"),
						"financial_impact":     enumWords("none", "low", "medium", "high", "critical"),
						"strategic_importance": enumWords("low", "medium", "high", "critical"),
						"urgency_level":        enumWords("low", "medium", "high", "immediate"),
						"risk_factors":         stringList,
						"opportunities":        stringList,
					},
					"required": []string{"impact_level", "financial_impact", "strategic_importance",
						"urgency_level", "risk_factors", "opportunities"},
					"additionalProperties": false,
				},
				"objective_progress": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"objective_text":         map[string]any{"type": "string"},
							"completion_percentage":  map[string]any{"type": "integer"},
							"is_fully_completed":     map[string]any{"type": "boolean"},
							"evidence":               stringList,
							"remaining_requirements": stringList,
						},
						"required": []string{"objective_text", "completion_percentage",
							"is_fully_completed", "evidence", "remaining_requirements"},
						"additionalProperties": false,
					},
				},
				"end_condition_status": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"condition_text": map[string]any{"type": "string"},
							"is_met":         map[string]any{"type": "boolean"},
							"likelihood":     map[string]any{"type": "number"},
						},
						"required":             []string{"condition_text", "is_met", "likelihood"},
						"additionalProperties": false,
					},
				},
				"summary":              map[string]any{"type": "string"},
				"recommended_approach": map[string]any{"type": "string"},
			},
			"required": []string{"emotion_analysis", "key_points", "business_impact",
				"objective_progress", "end_condition_status", "summary", "recommended_approach"},
			"additionalProperties": false,
		},
	}
}
