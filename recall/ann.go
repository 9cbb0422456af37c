package recall

import (
	"context"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/pkg/utils"
)

// 候选扩召回的默认参数：召回 max(k*5, 50) 个候选，给过滤与兜底留出余量。
const (
	DefaultCandidateMultiplier = 5
	DefaultMinCandidates       = 50
)

// 召回来源
const (
	SourceANN       = "ann"
	SourceColdStart = "cold_start"
)

// ANN 是 Embedding 向量检索召回 Node。
//
// 流程：
//  1. 用 Profile 把 rctx.Events 聚合为兴趣向量
//  2. 没有可用行为时使用全库质心（冷启动），并在 rctx 上打 cold_start 标签
//  3. 在 Index 中检索 max(k*CandidateMultiplier, MinCandidates) 个候选
//
// 向量表或索引未加载时返回 NOT_READY，由引擎降级为空结果。
type ANN struct {
	Index   core.VectorIndex
	Profile *ProfileBuilder

	CandidateMultiplier int
	MinCandidates       int
}

func (r *ANN) Name() string        { return "recall.ann" }
func (r *ANN) Kind() pipeline.Kind { return pipeline.KindRecall }

// CandidateCount 返回 k 对应的检索条数。
func (r *ANN) CandidateCount(k int) int {
	mul := r.CandidateMultiplier
	if mul <= 0 {
		mul = DefaultCandidateMultiplier
	}
	floor := r.MinCandidates
	if floor <= 0 {
		floor = DefaultMinCandidates
	}
	if n := k * mul; n > floor {
		return n
	}
	return floor
}

func (r *ANN) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if r.Index == nil || r.Profile == nil || r.Profile.Store.Len() == 0 {
		return nil, core.ErrIndexNotReady
	}

	query, ok := r.Profile.Build(rctx.Events)
	source := SourceANN
	if !ok {
		query = ColdStart(r.Profile.Store)
		source = SourceColdStart
		rctx.PutLabel(utils.LabelColdStart, utils.Label{Value: "1", Source: "recall"})
	}

	hits, err := r.Index.Search(ctx, query, r.CandidateCount(rctx.K))
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(hits))
	for i, h := range hits {
		it := core.NewItem(h.ID)
		it.Similarity = h.Score
		it.Rank = i
		it.PutLabel(utils.LabelRecallSource, utils.Label{Value: source, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
