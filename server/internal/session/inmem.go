package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("session not found")

// InMemoryStore 是一个基于内存的会话存储实现。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	// 第一阶段用内存 store：实现简单、调试方便。
	// 注意：重启即丢数据；多人/多实例部署需要替换为 Redis/DB。
	return &InMemoryStore{data: make(map[string]*Record)}
}

// Get 根据 SessionID 获取会话条目。
func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}

	return rec, nil
}

// Save 保存或更新会话条目。
func (s *InMemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[rec.State.SessionID] = rec
	return nil
}

// Delete 删除会话条目，不存在时静默成功。
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}
