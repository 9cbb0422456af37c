package filter

import (
	"context"
	"math"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pipeline"
)

// ProductLookup 是商品目录的只读查询接口，由 catalog.Catalog 实现。
type ProductLookup interface {
	Get(id string) (*core.Product, bool)
}

// HydrateNode 为候选回填商品信息。
// 目录中不存在的 ID（索引过期）与相似度非有限的候选直接丢弃。
type HydrateNode struct {
	Catalog ProductLookup
}

func (n *HydrateNode) Name() string        { return "filter.hydrate" }
func (n *HydrateNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *HydrateNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Catalog == nil {
		return items[:0], nil
	}
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil || math.IsNaN(it.Similarity) || math.IsInf(it.Similarity, 0) {
			continue
		}
		p, ok := n.Catalog.Get(it.ID)
		if !ok {
			continue
		}
		it.Product = p
		out = append(out, it)
	}
	return out, nil
}
