package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"exec-sim/server/internal/model"
)

// Scenario 是场景目录里的一个训练场景预设。
type Scenario struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`

	UserRole        string `yaml:"user_role" json:"user_role"`
	CounterpartRole string `yaml:"counterpart_role" json:"counterpart_role"`

	// 人格滑块，0-100。缺失维度由 SessionState.Trait 按默认值补齐。
	Personality map[string]int `yaml:"personality" json:"personality"`

	CounterpartObjectives []string `yaml:"counterpart_objectives" json:"counterpart_objectives"`
	UserObjectives        []string `yaml:"user_objectives" json:"user_objectives"`
	KnowledgeBase         string   `yaml:"knowledge_base,omitempty" json:"knowledge_base,omitempty"`
	EndConditions         []string `yaml:"end_conditions,omitempty" json:"end_conditions,omitempty"`
}

// LoadScenarios 从 YAML 文件加载场景目录。
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var doc struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(doc.Scenarios) == 0 {
		return nil, fmt.Errorf("scenarios file %s contains no scenarios", path)
	}

	for i, sc := range doc.Scenarios {
		if sc.ID == "" {
			return nil, fmt.Errorf("scenario %d missing id", i)
		}
		if sc.Description == "" {
			return nil, fmt.Errorf("scenario %s missing description", sc.ID)
		}
	}

	return doc.Scenarios, nil
}

// Catalog 按 ID 索引的场景目录。
type Catalog struct {
	scenarios []Scenario
	byID      map[string]*Scenario
}

func NewCatalog(scenarios []Scenario) *Catalog {
	c := &Catalog{
		scenarios: scenarios,
		byID:      make(map[string]*Scenario, len(scenarios)),
	}
	for i := range c.scenarios {
		c.byID[c.scenarios[i].ID] = &c.scenarios[i]
	}
	return c
}

// All 返回全部场景，顺序与文件一致。
func (c *Catalog) All() []Scenario {
	return c.scenarios
}

// ByID 按 ID 查找场景。
func (c *Catalog) ByID(id string) (*Scenario, bool) {
	sc, ok := c.byID[id]
	return sc, ok
}

// NewSessionState 从场景预设实例化一个会话状态。
func (sc *Scenario) NewSessionState(sessionID string) *model.SessionState {
	return &model.SessionState{
		SessionID:              sessionID,
		ScenarioContext:        sc.Description,
		UserRole:               sc.UserRole,
		CounterpartRole:        sc.CounterpartRole,
		CounterpartPersonality: clonePersonality(sc.Personality),
		CounterpartObjectives:  append([]string(nil), sc.CounterpartObjectives...),
		UserObjectives:         append([]string(nil), sc.UserObjectives...),
		KnowledgeBase:          sc.KnowledgeBase,
		EndConditions:          append([]string(nil), sc.EndConditions...),
	}
}

func clonePersonality(p map[string]int) map[string]int {
	out := make(map[string]int, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
