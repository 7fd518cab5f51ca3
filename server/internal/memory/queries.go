package memory

import (
	"fmt"
	"strings"

	"exec-sim/server/internal/model"
)

// InsightType 记忆问答的问题分类。
type InsightType string

const (
	InsightFinancial    InsightType = "financial"
	InsightKeyPoints    InsightType = "key_points"
	InsightStrategic    InsightType = "strategic"
	InsightStakeholders InsightType = "stakeholders"
	InsightActions      InsightType = "actions"
	InsightConcerns     InsightType = "concerns"
	InsightGeneral      InsightType = "general"
)

// RelevantData 记忆问答返回的数据切片，每类最多 MaxMemoryPreviewItems 条。
type RelevantData struct {
	RelevantKeyPoints     []string `json:"relevant_key_points"`
	RelevantFinancialData []string `json:"relevant_financial_data"`
	RelevantStakeholders  []string `json:"relevant_stakeholders"`
	RelevantActions       []string `json:"relevant_actions"`
	RelevantConcerns      []string `json:"relevant_concerns"`
	ContextSummary        string   `json:"context_summary"`
}

// Answer 是 CanAnswerFromMemory 的结果。
type Answer struct {
	CanAnswer         bool         `json:"can_answer"`
	InsightType       InsightType  `json:"insight_type,omitempty"`
	RelevantData      RelevantData `json:"relevant_data"`
	SuggestedApproach string       `json:"suggested_response_approach"`
}

// 问题分类词表。顺序即优先级：财务词最具体，先查先赢。
var (
	financialQueryWords = []string{
		"financiero", "financieras", "dinero", "presupuesto", "costo", "precio", "valor",
		"inversion", "inversión", "serie a", "funding", "revenue", "arr", "$", "millones",
		"ingresos", "cifras", "numeros", "números", "metricas", "métricas", "economico",
		"económico", "monetario",
	}
	summaryQueryWords = []string{
		"key findings", "puntos clave", "conclusiones", "resumen", "resumir",
	}
	conversationQueryWords = []string{
		"discutido", "hablado", "conversacion", "conversación", "mencionado",
		"aspectos", "temas", "cubierto", "tratado",
	}
	strategicQueryWords = []string{
		"estrategia", "estrategico", "estratégico", "plan", "enfoque", "vision", "visión",
		"mision", "misión", "objetivos", "metas", "direccion", "dirección",
	}
	stakeholderQueryWords = []string{
		"equipo", "personas", "stakeholder", "cliente", "usuario", "inversor",
		"socio", "partner", "ceo", "team",
	}
	actionQueryWords = []string{
		"acciones", "pasos", "implementar", "hacer", "ejecutar", "realizar",
		"siguiente", "proximos", "próximos", "plan de accion", "plan de acción",
	}
	concernQueryWords = []string{
		"problemas", "preocupaciones", "riesgos", "desafios", "desafíos",
		"dificultades", "obstaculos", "obstáculos", "concerns", "issues",
	}
	pastReferenceWords = []string{
		"anterior", "anteriormente", "antes", "previo", "pasado",
		"discutimos", "hablamos", "mencionamos", "dijimos",
	}
)

// CanAnswerFromMemory 判断一个问题能否用累积记忆直接回答。
// 无类别命中返回 CanAnswer=false 与空数据，这不是错误路径。
func CanAnswerFromMemory(question string, insights *model.ConversationInsights) Answer {
	lower := strings.ToLower(question)

	var insightType InsightType
	switch {
	case containsAny(lower, financialQueryWords):
		insightType = InsightFinancial
	case containsAny(lower, summaryQueryWords):
		insightType = InsightKeyPoints
	case containsAny(lower, conversationQueryWords):
		insightType = InsightKeyPoints
	case containsAny(lower, strategicQueryWords):
		insightType = InsightStrategic
	case containsAny(lower, stakeholderQueryWords):
		insightType = InsightStakeholders
	case containsAny(lower, actionQueryWords):
		insightType = InsightActions
	case containsAny(lower, concernQueryWords):
		insightType = InsightConcerns
	case containsAny(lower, pastReferenceWords):
		insightType = InsightGeneral
	default:
		return Answer{
			SuggestedApproach: "Respuesta normal sin referencia a insights",
		}
	}

	data := RelevantData{ContextSummary: "No insights available"}
	if insights != nil {
		data = RelevantData{
			RelevantKeyPoints:     preview(insights.AllKeyPoints),
			RelevantFinancialData: preview(insights.AllFinancial),
			RelevantStakeholders:  preview(insights.AllStakeholders),
			RelevantActions:       preview(insights.AllActionItems),
			RelevantConcerns:      preview(insights.AllConcerns),
			ContextSummary:        insights.Summary,
		}
	}

	return Answer{
		CanAnswer:         true,
		InsightType:       insightType,
		RelevantData:      data,
		SuggestedApproach: fmt.Sprintf("Referirse a insights previos sobre %s", insightType),
	}
}

// SearchResults 语义检索的分类结果。
type SearchResults struct {
	RelevantKeyPoints     []string `json:"relevant_key_points"`
	RelevantFinancialData []string `json:"relevant_financial_data"`
	RelevantStakeholders  []string `json:"relevant_stakeholders"`
	RelevantActions       []string `json:"relevant_actions"`
	RelevantConcerns      []string `json:"relevant_concerns"`
	ContextSummary        string   `json:"context_summary"`
	Query                 string   `json:"search_query"`
}

// Search 在累积记忆里做逐词子串匹配。
// 摘要类查询（resumen、puntos clave 等）跳过过滤直接返回全量列表。
func Search(insights *model.ConversationInsights, query string) SearchResults {
	results := SearchResults{Query: query}
	if insights == nil {
		results.ContextSummary = "No insights available for search"
		return results
	}
	results.ContextSummary = insights.Summary

	lower := strings.ToLower(query)
	if containsAny(lower, summaryQueryWords) || containsAny(lower, conversationQueryWords) {
		results.RelevantKeyPoints = append([]string(nil), insights.AllKeyPoints...)
		results.RelevantFinancialData = append([]string(nil), insights.AllFinancial...)
		results.RelevantStakeholders = append([]string(nil), insights.AllStakeholders...)
		results.RelevantActions = append([]string(nil), insights.AllActionItems...)
		results.RelevantConcerns = append([]string(nil), insights.AllConcerns...)
		return results
	}

	tokens := strings.Fields(lower)
	results.RelevantKeyPoints = filterByTokens(insights.AllKeyPoints, tokens)
	results.RelevantFinancialData = filterByTokens(insights.AllFinancial, tokens)
	results.RelevantStakeholders = filterByTokens(insights.AllStakeholders, tokens)
	results.RelevantActions = filterByTokens(insights.AllActionItems, tokens)
	results.RelevantConcerns = filterByTokens(insights.AllConcerns, tokens)
	return results
}

func filterByTokens(items, tokens []string) []string {
	var out []string
	for _, item := range items {
		itemLower := strings.ToLower(item)
		for _, tok := range tokens {
			if strings.Contains(itemLower, tok) {
				out = append(out, item)
				break
			}
		}
	}
	return model.DedupStrings(out)
}

func preview(items []string) []string {
	if len(items) > model.MaxMemoryPreviewItems {
		items = items[:model.MaxMemoryPreviewItems]
	}
	return append([]string(nil), items...)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
