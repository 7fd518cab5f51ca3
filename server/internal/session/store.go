package session

import (
	"context"
	"time"

	"exec-sim/server/internal/model"
)

// Record 是存储层持有的完整会话条目：状态 + 累积记忆 + 每轮分析留档。
type Record struct {
	State     *model.SessionState
	Insights  *model.ConversationInsights
	Analyses  []model.MessageAnalysis
	CreatedAt time.Time
}

type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
}
