package cache

import (
	"strings"
	"testing"

	"github.com/rushteam/shopsense/core"
)

var events = []core.Event{
	{EventType: core.EventView, ProductID: "p1", Timestamp: "2024-01-01T00:00:00Z"},
	{EventType: core.EventPurchase, ProductID: "p2", Timestamp: "2024-01-02T00:00:00Z"},
}

func TestEventsHash(t *testing.T) {
	h := EventsHash(events)
	if len(h) != 12 {
		t.Fatalf("摘要应为 12 位: %q", h)
	}
	if h != EventsHash(events) {
		t.Error("同一输入摘要应稳定")
	}
	reversed := []core.Event{events[1], events[0]}
	if h != EventsHash(reversed) {
		t.Error("摘要应与事件顺序无关")
	}
	changed := []core.Event{events[0], {EventType: core.EventClick, ProductID: "p2", Timestamp: events[1].Timestamp}}
	if h == EventsHash(changed) {
		t.Error("事件内容变化时摘要应变化")
	}
	if EventsHash(nil) != EventsHash([]core.Event{}) {
		t.Error("nil 与空列表应得到同一摘要")
	}
}

func TestRecommendKey(t *testing.T) {
	evh := EventsHash(events)
	tests := []struct {
		name string
		c    core.Constraints
		k    int
		want string
	}{
		{"no filters", core.Constraints{}, 10, "recommend:u1:" + evh + ":all:none:none:none:k10"},
		{"category", core.Constraints{Category: "apparel"}, 5, "recommend:u1:" + evh + ":apparel:none:none:none:k5"},
		{"prices", core.Constraints{MinPrice: core.Float64(100), MaxPrice: core.Float64(249.5)}, 10, "recommend:u1:" + evh + ":all:100:249.5:none:k10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecommendKey("u1", events, tt.c, tt.k); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecommendKey_Expr(t *testing.T) {
	a := RecommendKey("u1", nil, core.Constraints{Expr: `product.brand == "A"`}, 10)
	b := RecommendKey("u1", nil, core.Constraints{Expr: `product.brand == "B"`}, 10)
	if a == b {
		t.Error("不同表达式应得到不同 key")
	}
	if strings.Contains(a, "product.brand") {
		t.Errorf("表达式应以摘要形式出现在 key 中: %s", a)
	}
}

func TestExplainKey(t *testing.T) {
	got := ExplainKey("u1", "p9", events, core.Constraints{Category: "home"})
	want := "explain:u1:p9:" + EventsHash(events) + ":home:none:none:none"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestKeys_EscapeSeparators(t *testing.T) {
	evh := EventsHash(events)
	tests := []struct {
		name string
		a, b string
	}{
		{
			"recommend user vs category",
			RecommendKey("u:"+evh, events, core.Constraints{Category: "c"}, 10),
			RecommendKey("u", events, core.Constraints{Category: evh + ":c"}, 10),
		},
		{
			"explain user vs product",
			ExplainKey("u:p", "q", events, core.Constraints{}),
			ExplainKey("u", "p:q", events, core.Constraints{}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Errorf("不同请求不应得到同一 key: %s", tt.a)
			}
		})
	}
	if got := RecommendKey("a b", nil, core.Constraints{Category: "x:y"}, 1); strings.Count(got, ":") != 7 {
		t.Errorf("自由文本中的分隔符应被转义: %s", got)
	}
}
