package filter

import (
	"context"

	"github.com/rushteam/shopsense/core"
)

// Filter 判断一个候选是否违反约束。
// 返回 true 表示违反；违反后是剔除还是划入兜底池由 FilterNode 的 Policy 决定。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否违反约束
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Policy 是违反约束的候选的处理策略。
type Policy string

const (
	// PolicyFallback 违反约束的候选进入兜底池，主池不足 k 个时用于补齐（默认）
	PolicyFallback Policy = "fallback"
	// PolicyStrict 违反约束的候选直接剔除
	PolicyStrict Policy = "strict"
)

// ParsePolicy 解析策略名，空串视为 fallback。
func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case "", PolicyFallback:
		return PolicyFallback, true
	case PolicyStrict:
		return PolicyStrict, true
	default:
		return "", false
	}
}
