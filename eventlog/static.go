package eventlog

import (
	"context"
	"sync"

	"github.com/rushteam/shopsense/core"
)

// Static 是内存中的事件源，用于测试与离线评估。
type Static struct {
	mu     sync.RWMutex
	events map[string][]core.Event
}

// NewStatic 以给定数据创建事件源。
func NewStatic(events map[string][]core.Event) *Static {
	s := &Static{events: make(map[string][]core.Event, len(events))}
	for user, evs := range events {
		s.Put(user, evs...)
	}
	return s
}

// Put 追加用户行为。
func (s *Static) Put(userID string, events ...core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		s.events = make(map[string][]core.Event)
	}
	s.events[userID] = append(s.events[userID], events...)
}

// RecentEvents 实现 core.EventSource，未知用户返回空列表。
func (s *Static) RecentEvents(_ context.Context, userID string) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[userID]
	out := make([]core.Event, len(evs))
	copy(out, evs)
	return out, nil
}

var _ core.EventSource = (*Static)(nil)
