package recall

import (
	"math"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/vector"
)

// EventWeights 是各行为类型对兴趣向量的贡献权重。
type EventWeights struct {
	View      float64 `koanf:"view" json:"view"`
	Click     float64 `koanf:"click" json:"click"`
	AddToCart float64 `koanf:"add_to_cart" json:"add_to_cart"`
	Purchase  float64 `koanf:"purchase" json:"purchase"`
	Unknown   float64 `koanf:"unknown" json:"unknown"` // 未识别的行为类型
}

// DefaultEventWeights 返回默认权重：view=1, click=3, add_to_cart=5, purchase=10，未知类型按 1 计。
func DefaultEventWeights() EventWeights {
	return EventWeights{View: 1, Click: 3, AddToCart: 5, Purchase: 10, Unknown: 1}
}

// Of 返回行为类型对应的权重。
func (w EventWeights) Of(eventType string) float64 {
	switch eventType {
	case core.EventView:
		return w.View
	case core.EventClick:
		return w.Click
	case core.EventAddToCart:
		return w.AddToCart
	case core.EventPurchase:
		return w.Purchase
	default:
		return w.Unknown
	}
}

// ProfileBuilder 把用户近期行为聚合成一个兴趣向量（加权质心）。
type ProfileBuilder struct {
	Store   *vector.Store
	Weights EventWeights
}

// NewProfileBuilder 使用默认权重创建 ProfileBuilder。
func NewProfileBuilder(store *vector.Store) *ProfileBuilder {
	return &ProfileBuilder{Store: store, Weights: DefaultEventWeights()}
}

// Build 计算兴趣向量：Σ(w·v) / max(Σw, 1)，再做 L2 归一化。
//
//   - 商品不在向量表中的行为跳过
//   - 向量含非有限分量的行为跳过，避免污染整个查询向量
//   - 没有任何可用行为时返回 (nil, false)，由调用方走冷启动
//   - 结果范数为 0 时原样返回零向量
func (b *ProfileBuilder) Build(events []core.Event) ([]float32, bool) {
	if b == nil || b.Store.Len() == 0 || len(events) == 0 {
		return nil, false
	}
	dim := b.Store.Dim()
	sum := make([]float64, dim)
	var total float64
	used := 0
	for _, ev := range events {
		vec, ok := b.Store.Get(ev.ProductID)
		if !ok || !allFinite(vec) {
			continue
		}
		w := b.Weights.Of(ev.EventType)
		for i, x := range vec {
			sum[i] += w * float64(x)
		}
		total += w
		used++
	}
	if used == 0 {
		return nil, false
	}

	denom := math.Max(total, 1)
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / denom)
	}
	vector.Normalize(out)
	return out, true
}

// ColdStart 返回冷启动查询向量（全库质心）。
func ColdStart(store *vector.Store) []float32 {
	return store.Centroid()
}

func allFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
