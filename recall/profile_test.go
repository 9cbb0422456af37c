package recall

import (
	"math"
	"testing"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/vector"
)

func newStore(t *testing.T) *vector.Store {
	t.Helper()
	s, err := vector.NewStore([]vector.Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "c", Vector: []float32{-1, 0}},
		{ID: "nan", Vector: []float32{float32(math.NaN()), 1}},
	})
	if err != nil {
		t.Fatalf("NewStore 失败: %v", err)
	}
	return s
}

func TestEventWeights_Of(t *testing.T) {
	w := DefaultEventWeights()
	tests := []struct {
		eventType string
		want      float64
	}{
		{core.EventView, 1},
		{core.EventClick, 3},
		{core.EventAddToCart, 5},
		{core.EventPurchase, 10},
		{"wishlist", 1},
		{"", 1},
	}
	for _, tt := range tests {
		if got := w.Of(tt.eventType); got != tt.want {
			t.Errorf("Of(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestProfileBuilder_Build(t *testing.T) {
	b := NewProfileBuilder(newStore(t))

	// view a (1) + purchase b (10) → (1, 10)/11 → 归一化
	vec, ok := b.Build([]core.Event{
		{EventType: core.EventView, ProductID: "a"},
		{EventType: core.EventPurchase, ProductID: "b"},
		{EventType: core.EventClick, ProductID: "unknown"},
	})
	if !ok {
		t.Fatal("应产生兴趣向量")
	}
	n := math.Sqrt(1 + 100)
	if math.Abs(float64(vec[0])-1/n) > 1e-6 || math.Abs(float64(vec[1])-10/n) > 1e-6 {
		t.Errorf("兴趣向量错误: %v", vec)
	}
	if math.Abs(vector.Norm(vec)-1) > 1e-6 {
		t.Errorf("兴趣向量应为单位向量，范数 %v", vector.Norm(vec))
	}
}

func TestProfileBuilder_NoSignal(t *testing.T) {
	b := NewProfileBuilder(newStore(t))
	tests := []struct {
		name   string
		events []core.Event
	}{
		{"nil", nil},
		{"unknown products", []core.Event{{EventType: core.EventView, ProductID: "zzz"}}},
		{"non-finite embedding", []core.Event{{EventType: core.EventView, ProductID: "nan"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if vec, ok := b.Build(tt.events); ok || vec != nil {
				t.Errorf("期望无信号，实际 %v", vec)
			}
		})
	}
}

func TestProfileBuilder_ZeroNorm(t *testing.T) {
	b := NewProfileBuilder(newStore(t))
	// a 与 c 方向相反、权重相同，和为零向量
	vec, ok := b.Build([]core.Event{
		{EventType: core.EventView, ProductID: "a"},
		{EventType: core.EventView, ProductID: "c"},
	})
	if !ok {
		t.Fatal("有可用行为时应返回 ok")
	}
	if vector.Norm(vec) != 0 {
		t.Errorf("零向量应原样返回: %v", vec)
	}
}

func TestProfileBuilder_ZeroWeightsUseUnitDenominator(t *testing.T) {
	b := &ProfileBuilder{Store: newStore(t)}
	vec, ok := b.Build([]core.Event{{EventType: core.EventView, ProductID: "a"}})
	if !ok {
		t.Fatal("权重全为 0 时仍算作有信号")
	}
	if vector.Norm(vec) != 0 {
		t.Errorf("权重为 0 时应得到零向量: %v", vec)
	}
}

func TestColdStart(t *testing.T) {
	s := newStore(t)
	c := ColdStart(s)
	if len(c) != s.Dim() {
		t.Fatalf("冷启动向量维度错误: %v", c)
	}
	for _, x := range c {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			t.Errorf("冷启动向量不应含非有限值: %v", c)
		}
	}
}
