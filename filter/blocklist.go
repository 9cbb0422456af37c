package filter

import (
	"context"

	"github.com/rushteam/shopsense/core"
)

// BlocklistFilter 是下架/屏蔽商品过滤器。
// 放在 FilterNode.Excludes 中使用：命中的候选无论策略如何都会被剔除，不进入兜底池。
type BlocklistFilter struct {
	ids map[string]struct{}
}

// NewBlocklistFilter 创建一个屏蔽列表过滤器。
func NewBlocklistFilter(ids []string) *BlocklistFilter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &BlocklistFilter{ids: set}
}

func (f *BlocklistFilter) Name() string { return "filter.blocklist" }

func (f *BlocklistFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, blocked := f.ids[item.ID]
	return blocked, nil
}

// Len 返回屏蔽商品数。
func (f *BlocklistFilter) Len() int { return len(f.ids) }
