package timeline

import (
	"context"

	"exec-sim/server/internal/model"
)

// Store 记录会话 transcript，用于回放与评估时的事后审计。
type Store interface {
	// Append 以 append-first 的契约写入 transcript，返回本次写入的 seq。
	// 约定：同一 session 的 seq 单调递增；相同 EventID 的请求应幂等返回同一 seq。
	Append(ctx context.Context, sessionID string, evt *model.TranscriptEvent) (int64, error)
	// List 返回该 session 的全量事件，按 seq 顺序。
	List(ctx context.Context, sessionID string) ([]model.TranscriptEvent, error)
}
