package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/pkg/utils"
)

// Weights 是融合打分的系数。
type Weights struct {
	Alpha float64 `koanf:"alpha" json:"alpha"` // 相似度
	Beta  float64 `koanf:"beta" json:"beta"`   // 类目命中
	Gamma float64 `koanf:"gamma" json:"gamma"` // 价格邻近度
}

// DefaultWeights 返回 0.7 / 0.2 / 0.1。
func DefaultWeights() Weights {
	return Weights{Alpha: 0.7, Beta: 0.2, Gamma: 0.1}
}

// Validate 要求各系数有限、非负且和不超过 1，保证最终分数落在 [0,1]。
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"alpha": w.Alpha, "beta": w.Beta, "gamma": w.Gamma} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("rank weight %s must be a finite non-negative number, got %v", name, v)
		}
	}
	if sum := w.Alpha + w.Beta + w.Gamma; sum > 1+1e-9 {
		return fmt.Errorf("rank weights must sum to at most 1, got %v", sum)
	}
	return nil
}

// WeightedNode 对候选做线性融合打分：
//
//	score = α·clamp(sim, 0, 1) + β·category_match + γ·price_proximity
//
// category_match 只在请求给出类目时计入；price_proximity 只在两个价格边界都给出时计入。
// 分数非有限时置 0。打分后按分数降序、同分按召回顺序稳定排序。
type WeightedNode struct {
	Weights Weights
}

func (n *WeightedNode) Name() string        { return "rank.weighted" }
func (n *WeightedNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *WeightedNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	c := rctx.Constraints
	lo, hi, hasRange := c.PriceBounds()

	for _, it := range items {
		if it == nil {
			continue
		}
		score := n.Weights.Alpha * ClampSimilarity(it.Similarity)
		if c.CategoryMatch(it.Product) {
			score += n.Weights.Beta
		}
		if hasRange && it.Product != nil {
			score += n.Weights.Gamma * PriceProximity(it.Product.Price, lo, hi)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: "weighted", Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// ClampSimilarity 把相似度截断到 [0,1]，非有限值视为 0。
func ClampSimilarity(sim float64) float64 {
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, sim))
}

// PriceProximity = max(0, 1 − |price − mid| / (max − min + 1))，区间中点得 1，越远越小。
func PriceProximity(price, lo, hi float64) float64 {
	mid := (lo + hi) / 2
	span := hi - lo + 1
	return math.Max(0, 1-math.Abs(price-mid)/span)
}
