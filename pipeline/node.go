package pipeline

import (
	"context"

	"github.com/rushteam/shopsense/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：生成候选集
	KindFilter Kind = "filter" // 过滤阶段：回填商品信息、按约束划分主池/兜底池
	KindRank   Kind = "rank"   // 排序阶段：对候选打分
	KindReRank Kind = "rerank" // 重排阶段：去重、截断、兜底补齐
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，Recall 生成、Filter 回填/截断、ReRank 重排都在同一条链上完成。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
