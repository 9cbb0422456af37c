package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/rank"
)

// TopNNode 截取最终的 Top-N 结果，并在主池不足时用兜底池补齐。
//
// 规则：
//   - 主池按分数降序，同分按召回顺序；按商品 ID 去重，保留第一次出现
//   - 主池不足 N 个时，兜底池按截断后的相似度降序追加，跳过已选中的 ID
//   - 主池结果总是排在兜底结果之前
//
// N <= 0 时使用 rctx.K；两者都 <= 0 时不截断。
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	k := n.N
	if k <= 0 && rctx != nil {
		k = rctx.K
	}
	if k <= 0 {
		k = len(items)
	}

	primary := make([]*core.Item, 0, len(items))
	fallback := make([]*core.Item, 0)
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.InFallbackPool() {
			fallback = append(fallback, it)
		} else {
			primary = append(primary, it)
		}
	}

	sort.SliceStable(primary, func(i, j int) bool {
		if primary[i].Score != primary[j].Score {
			return primary[i].Score > primary[j].Score
		}
		return primary[i].Rank < primary[j].Rank
	})

	out := make([]*core.Item, 0, k)
	seen := make(map[string]struct{}, k)
	out = take(out, seen, primary, k)
	if len(out) >= k || len(fallback) == 0 {
		return out, nil
	}

	sort.SliceStable(fallback, func(i, j int) bool {
		si, sj := rank.ClampSimilarity(fallback[i].Similarity), rank.ClampSimilarity(fallback[j].Similarity)
		if si != sj {
			return si > sj
		}
		return fallback[i].Rank < fallback[j].Rank
	})
	return take(out, seen, fallback, k), nil
}

func take(out []*core.Item, seen map[string]struct{}, from []*core.Item, k int) []*core.Item {
	for _, it := range from {
		if len(out) >= k {
			break
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
