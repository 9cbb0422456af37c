package core

import "github.com/rushteam/shopsense/pkg/utils"

// Item 是推荐链路中的候选记录：召回相似度、排序分数、商品信息、标签。
// Labels 用于解释与策略驱动（category_match / price_in_range / pool 等）；Score 用于排序决策。
type Item struct {
	ID string

	// Similarity 是 ANN 返回的原始相似度（理论范围 [-1,1]，打分时截断到 [0,1]）
	Similarity float64

	// Rank 是 ANN 召回顺序（0 起），用于同分时的稳定排序
	Rank int

	// Score 是融合后的最终分数
	Score float64

	// Product 由 filter.HydrateNode 回填，未回填前为 nil
	Product *Product

	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// SetLabel 覆盖写入 Label（用于 pool 这类只允许单值的标签）。
func (it *Item) SetLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	it.Labels[key] = lbl
}

// LabelValue 返回 Label 的值，不存在时返回空串。
func (it *Item) LabelValue(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}

// InFallbackPool 判断候选是否被过滤阶段划入了兜底池。
func (it *Item) InFallbackPool() bool {
	return it.LabelValue(utils.LabelPool) == utils.PoolFallback
}
