package model

import "time"

// Speaker 对话中的说话方。
type Speaker string

const (
	SpeakerUser        Speaker = "user"
	SpeakerCounterpart Speaker = "counterpart"
)

// Turn 表示对话中的一个轮次。
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	TS      time.Time `json:"ts"`
}

// TranscriptEvent 是会话 transcript 里的一条审计记录。
// Seq 由 timeline 存储分配，同一会话内单调递增。
type TranscriptEvent struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id,omitempty"`
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"` // "session_created" / "user_message" / "counterpart_response"
	Speaker   Speaker   `json:"speaker,omitempty"`
	Content   string    `json:"content"`
	TS        time.Time `json:"ts"`
}

// 人格维度的默认值。缺失的维度按默认值补齐。
const (
	DefaultTraitValue      = 50
	DefaultAggressionValue = 30
)

// 契约上限：为了控制分析成本，目标/结束条件/记忆预览列表都有固定截断。
const (
	MaxTrackedObjectives  = 3
	MaxTrackedEndConds    = 2
	MaxMemoryPreviewItems = 5
	MaxDominantEmotions   = 3
)

// SessionState 保存了一个模拟会话的全部上下文。
// 由调用方持有并在每个轮次传入；编排器不会原地修改它。
type SessionState struct {
	// 唯一标识一个会话。
	SessionID string `json:"session_id"`
	// 场景的自由文本描述。
	ScenarioContext string `json:"scenario_context"`
	// 用户与模拟对手的角色描述。
	UserRole        string `json:"user_role"`
	CounterpartRole string `json:"counterpart_role"`
	// 对手人格滑块（analytical/patience/aggression/flexibility，0-100）。
	CounterpartPersonality map[string]int `json:"counterpart_personality"`
	// 双方目标。用户目标是进度跟踪的对象。
	CounterpartObjectives []string `json:"counterpart_objectives"`
	UserObjectives        []string `json:"user_objectives"`
	// 对手可引用的背景知识，可为空。
	KnowledgeBase string `json:"knowledge_base,omitempty"`
	// 满足即可结束会话的条件，可为空。
	EndConditions []string `json:"end_conditions,omitempty"`
	// 对话的历史轮次，会话内只追加。
	Turns []Turn `json:"turns"`
}

// Trait 返回人格维度的取值，缺失时按约定默认值补齐。
func (s *SessionState) Trait(name string) int {
	if v, ok := s.CounterpartPersonality[name]; ok {
		return v
	}
	if name == "aggression" {
		return DefaultAggressionValue
	}
	return DefaultTraitValue
}

// UserTurnCount 统计用户已发言的轮数，阶段推断依赖它。
func (s *SessionState) UserTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// Emotion 用户消息的情绪枚举。
type Emotion string

const (
	EmotionPositive      Emotion = "positive"
	EmotionNegative      Emotion = "negative"
	EmotionNeutral       Emotion = "neutral"
	EmotionFrustrated    Emotion = "frustrated"
	EmotionConfident     Emotion = "confident"
	EmotionHesitant      Emotion = "hesitant"
	EmotionAggressive    Emotion = "aggressive"
	EmotionCollaborative Emotion = "collaborative"
)

// ValidEmotion 判断情绪取值是否在枚举内。
func ValidEmotion(e Emotion) bool {
	switch e {
	case EmotionPositive, EmotionNegative, EmotionNeutral, EmotionFrustrated,
		EmotionConfident, EmotionHesitant, EmotionAggressive, EmotionCollaborative:
		return true
	}
	return false
}

// ImpactLevel 业务影响/战略重要性等级。
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// FinancialImpact 财务影响等级，比 ImpactLevel 多一个 none。
type FinancialImpact string

const (
	FinancialNone     FinancialImpact = "none"
	FinancialLow      FinancialImpact = "low"
	FinancialMedium   FinancialImpact = "medium"
	FinancialHigh     FinancialImpact = "high"
	FinancialCritical FinancialImpact = "critical"
)

// UrgencyLevel 紧迫程度等级。
type UrgencyLevel string

const (
	UrgencyLow       UrgencyLevel = "low"
	UrgencyMedium    UrgencyLevel = "medium"
	UrgencyHigh      UrgencyLevel = "high"
	UrgencyImmediate UrgencyLevel = "immediate"
)

// 严重度排序表：记忆累积的单调最大值按这里的 rank 计算。
var (
	impactRank = map[ImpactLevel]int{
		ImpactLow: 1, ImpactMedium: 2, ImpactHigh: 3, ImpactCritical: 4,
	}
	urgencyRank = map[UrgencyLevel]int{
		UrgencyLow: 1, UrgencyMedium: 2, UrgencyHigh: 3, UrgencyImmediate: 4,
	}
)

// ImpactRank 返回影响等级的严重度序号，未知取值为 0。
func ImpactRank(l ImpactLevel) int { return impactRank[l] }

// UrgencyRank 返回紧迫等级的严重度序号，未知取值为 0。
func UrgencyRank(l UrgencyLevel) int { return urgencyRank[l] }

// ValidImpact 判断影响等级是否在枚举内。
func ValidImpact(l ImpactLevel) bool { return impactRank[l] > 0 }

// ValidUrgency 判断紧迫等级是否在枚举内。
func ValidUrgency(l UrgencyLevel) bool { return urgencyRank[l] > 0 }

// ValidFinancialImpact 判断财务影响等级是否在枚举内。
func ValidFinancialImpact(f FinancialImpact) bool {
	switch f {
	case FinancialNone, FinancialLow, FinancialMedium, FinancialHigh, FinancialCritical:
		return true
	}
	return false
}

// EmotionAnalysis 单条消息的情绪分析结果。
type EmotionAnalysis struct {
	Primary    Emotion  `json:"primary_emotion"`
	Confidence float64  `json:"confidence_score"`
	Indicators []string `json:"emotional_indicators"`
}

// KeyPoints 单条消息中抽取出的要点，各列表去重、无序。
type KeyPoints struct {
	MainTopics        []string `json:"main_topics"`
	FinancialMentions []string `json:"financial_mentions"`
	StrategicConcepts []string `json:"strategic_concepts"`
	Stakeholders      []string `json:"stakeholders_mentioned"`
	ActionItems       []string `json:"action_items"`
	ConcernsRaised    []string `json:"concerns_raised"`
}

// BusinessImpact 单条消息的业务影响评估。
type BusinessImpact struct {
	ImpactLevel         ImpactLevel     `json:"impact_level"`
	FinancialImpact     FinancialImpact `json:"financial_impact"`
	StrategicImportance ImpactLevel     `json:"strategic_importance"`
	UrgencyLevel        UrgencyLevel    `json:"urgency_level"`
	RiskFactors         []string        `json:"risk_factors"`
	Opportunities       []string        `json:"opportunities"`
}

// ObjectiveProgress 针对单条用户目标的进度估计。
type ObjectiveProgress struct {
	ObjectiveText         string   `json:"objective_text"`
	CompletionPercentage  int      `json:"completion_percentage"`
	IsFullyCompleted      bool     `json:"is_fully_completed"`
	Evidence              []string `json:"evidence"`
	RemainingRequirements []string `json:"remaining_requirements"`
}

// EndConditionStatus 针对单条结束条件的判定。
type EndConditionStatus struct {
	ConditionText string  `json:"condition_text"`
	IsMet         bool    `json:"is_met"`
	Likelihood    float64 `json:"likelihood"`
}

// MessageAnalysis 是分析器两种策略的统一输出形状。
// 不论走哪条路径，所有有界字段都已被钳制在声明范围内。
type MessageAnalysis struct {
	Emotion             EmotionAnalysis      `json:"emotion_analysis"`
	KeyPoints           KeyPoints            `json:"key_points"`
	BusinessImpact      BusinessImpact       `json:"business_impact"`
	ObjectiveProgress   []ObjectiveProgress  `json:"objective_progress"`
	EndConditionStatus  []EndConditionStatus `json:"end_condition_status"`
	Summary             string               `json:"summary"`
	RecommendedApproach string               `json:"recommended_approach"`
}

// ConversationPhase 按用户轮数推导的粗粒度阶段标签。
type ConversationPhase string

const (
	PhaseOpening     ConversationPhase = "opening"
	PhaseDevelopment ConversationPhase = "development"
	PhaseNegotiation ConversationPhase = "negotiation"
	PhaseClosing     ConversationPhase = "closing"
)

// PhaseForTurnCount 阶段是用户轮数的纯函数。
func PhaseForTurnCount(userTurns int) ConversationPhase {
	switch {
	case userTurns <= 2:
		return PhaseOpening
	case userTurns <= 5:
		return PhaseDevelopment
	case userTurns <= 8:
		return PhaseNegotiation
	default:
		return PhaseClosing
	}
}

// ConversationInsights 跨轮次累积的会话记忆。
// 列表只增不减；严重度字段在严重度排序下单调不降。
type ConversationInsights struct {
	AllKeyPoints    []string `json:"all_key_points"`
	AllFinancial    []string `json:"all_financial_mentions"`
	AllStrategic    []string `json:"all_strategic_concepts"`
	AllStakeholders []string `json:"all_stakeholders"`
	AllActionItems  []string `json:"all_action_items"`
	AllConcerns     []string `json:"all_concerns"`

	HighestImpactLevel ImpactLevel  `json:"highest_impact_level"`
	PeakUrgencyLevel   UrgencyLevel `json:"peak_urgency_level"`

	// 观测到的全部情绪序列，用于重算 top-3 主导情绪。
	EmotionHistory   []Emotion `json:"emotion_history"`
	DominantEmotions []Emotion `json:"dominant_emotions"`

	// 阶段变化时才追加新标签，不会出现连续重复。
	PhaseHistory []ConversationPhase `json:"phase_history"`

	UserTurnCount int    `json:"user_turn_count"`
	Summary       string `json:"summary"`
}

// CurrentPhase 返回最近记录的阶段，空历史视为开场。
func (ci *ConversationInsights) CurrentPhase() ConversationPhase {
	if ci == nil || len(ci.PhaseHistory) == 0 {
		return PhaseOpening
	}
	return ci.PhaseHistory[len(ci.PhaseHistory)-1]
}

// ResponseEmotion 对手回复的情绪基调枚举。
type ResponseEmotion string

const (
	RespPositive    ResponseEmotion = "positive"
	RespNeutral     ResponseEmotion = "neutral"
	RespSkeptical   ResponseEmotion = "skeptical"
	RespConcerned   ResponseEmotion = "concerned"
	RespEncouraging ResponseEmotion = "encouraging"
)

// ValidResponseEmotion 判断回复情绪是否在枚举内。
func ValidResponseEmotion(e ResponseEmotion) bool {
	switch e {
	case RespPositive, RespNeutral, RespSkeptical, RespConcerned, RespEncouraging:
		return true
	}
	return false
}

// CounterpartResponse 合成器输出：对手的下一句发言及元数据。
type CounterpartResponse struct {
	Content           string          `json:"content"`
	Emotion           ResponseEmotion `json:"emotion"`
	ConfidenceLevel   int             `json:"confidence_level"`
	KeyPoints         []string        `json:"key_points"`
	BusinessImpact    ImpactLevel     `json:"business_impact"`
	SuggestedFollowUp string          `json:"suggested_follow_up,omitempty"`
}

// TurnResult 是编排器单轮处理的返回三元组。
type TurnResult struct {
	Response        CounterpartResponse   `json:"response"`
	Analysis        MessageAnalysis       `json:"analysis"`
	UpdatedInsights *ConversationInsights `json:"updated_insights"`
}

// ClampInt 把整数钳制到 [lo, hi]。
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat 把浮点数钳制到 [lo, hi]。
func ClampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DedupStrings 保序去重，空串被丢弃。
func DedupStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
