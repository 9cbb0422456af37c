package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/store"
)

type payload struct {
	IDs []string `json:"ids"`
}

func TestCache_GetSet(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	c := New(s, zerolog.Nop())
	ctx := context.Background()

	var out payload
	if c.Get(ctx, "recommend:k", &out) {
		t.Fatal("空缓存不应命中")
	}
	c.SetRecommend(ctx, "recommend:k", payload{IDs: []string{"a", "b"}})
	if !c.Get(ctx, "recommend:k", &out) {
		t.Fatal("写入后应命中")
	}
	if len(out.IDs) != 2 || out.IDs[1] != "b" {
		t.Errorf("解码结果错误: %+v", out)
	}

	// 空结果同样可以命中
	c.SetRecommend(ctx, "recommend:empty", []string{})
	var empty []string
	if !c.Get(ctx, "recommend:empty", &empty) || empty == nil || len(empty) != 0 {
		t.Errorf("空列表应被缓存并命中: %v", empty)
	}
}

func TestCache_Undecodable(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	_ = s.Set(context.Background(), "explain:k", []byte("{not json"), 0)

	var out payload
	if New(s, zerolog.Nop()).Get(context.Background(), "explain:k", &out) {
		t.Error("无法解码的值应视为未命中")
	}
}

type failingStore struct{}

func (failingStore) Name() string { return "failing" }
func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection reset")
}
func (failingStore) Delete(context.Context, string) error { return nil }
func (failingStore) Close() error                         { return nil }

var _ core.Store = failingStore{}

func TestCache_StoreErrorsAreMisses(t *testing.T) {
	c := New(failingStore{}, zerolog.Nop())
	var out payload
	if c.Get(context.Background(), "recommend:k", &out) {
		t.Error("存储错误应视为未命中")
	}
	c.SetRecommend(context.Background(), "recommend:k", payload{})
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	var out payload
	if c.Get(context.Background(), "k", &out) {
		t.Error("nil Cache 不应命中")
	}
	c.SetExplain(context.Background(), "k", out)

	c = New(nil, zerolog.Nop())
	if c.Get(context.Background(), "k", &out) {
		t.Error("无 Store 时不应命中")
	}
}

func TestCache_TTL(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	c := New(s, zerolog.Nop())
	c.Set(context.Background(), "recommend:ttl", payload{}, 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	var out payload
	if c.Get(context.Background(), "recommend:ttl", &out) {
		t.Error("过期后不应命中")
	}
}
