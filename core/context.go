package core

import "github.com/rushteam/shopsense/pkg/utils"

// RecommendContext 承载单次请求的用户、行为与约束信息，贯穿整个 Pipeline 透传。
// 每个请求独立创建，Node 之间不共享可变状态。
type RecommendContext struct {
	RequestID string
	UserID    string

	// K 是期望返回的结果数
	K int

	// Events 是用户近期行为（已按时间排序）
	Events []Event

	// Constraints 是调用方给出的过滤条件
	Constraints Constraints

	// Labels 是请求级标签，例如 cold_start
	Labels map[string]utils.Label

	// Params 请求级扩展参数
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
