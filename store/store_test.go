package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shopsense/core"
)

// exerciseStore 对任意 core.Store 实现跑同一组读写用例。
func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("[%s] 不存在的 key 应返回 ErrStoreNotFound，实际 %v", s.Name(), err)
	}

	if err := s.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("[%s] Set 失败: %v", s.Name(), err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil || string(got) != "v1" {
		t.Errorf("[%s] Get = %q, %v", s.Name(), got, err)
	}

	if err := s.Set(ctx, "k1", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("[%s] 覆盖写入失败: %v", s.Name(), err)
	}
	if got, _ := s.Get(ctx, "k1"); string(got) != "v2" {
		t.Errorf("[%s] 覆盖后应读到 v2，实际 %q", s.Name(), got)
	}

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("[%s] Delete 失败: %v", s.Name(), err)
	}
	if _, err := s.Get(ctx, "k1"); !core.IsStoreNotFound(err) {
		t.Errorf("[%s] 删除后应不存在，实际 %v", s.Name(), err)
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("[%s] 删除不存在的 key 不应报错: %v", s.Name(), err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "short", []byte("x"), 20*time.Millisecond)
	if _, err := s.Get(ctx, "short"); err != nil {
		t.Fatalf("过期前应能读到: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := s.Get(ctx, "short"); !core.IsStoreNotFound(err) {
		t.Errorf("过期后应返回 ErrStoreNotFound，实际 %v", err)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf, 0)
	buf[0] = 'z'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("写入后修改原切片不应影响存储: %q", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("重复 Close 不应报错: %v", err)
	}
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadgerStore("")
	if err != nil {
		t.Fatalf("OpenBadgerStore 失败: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStore 失败: %v", err)
	}
	_ = s.Set(context.Background(), "k", []byte("v"), time.Hour)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("重新打开失败: %v", err)
	}
	defer s.Close()
	if got, err := s.Get(context.Background(), "k"); err != nil || string(got) != "v" {
		t.Errorf("重启后应能读到: %q, %v", got, err)
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	// 端口 1 上没有 Redis，Ping 会立即失败
	if _, err := NewRedisStore("127.0.0.1:1", 0); !core.IsUnavailable(err) {
		t.Errorf("期望 UNAVAILABLE，实际 %v", err)
	}
}

func TestNewRedisStoreFromURL_BadURL(t *testing.T) {
	if _, err := NewRedisStoreFromURL("http://not-redis"); err == nil {
		t.Error("非 redis scheme 应返回错误")
	}
}
