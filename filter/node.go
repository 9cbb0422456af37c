package filter

import (
	"context"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pipeline"
	"github.com/rushteam/shopsense/pkg/utils"
)

// FilterNode 按约束把候选划分为主池与兜底池。
//
//   - 每个候选都会写入 category_match / price_in_range 标签，供打分与解释使用
//   - Excludes 命中的候选总是剔除
//   - Filters 命中的候选：fallback 策略下标记 pool=fallback，strict 策略下剔除
//   - 过滤器报错时跳过该过滤器；表达式非法（INVALID_INPUT）则中止请求
type FilterNode struct {
	Filters  []Filter
	Excludes []Filter
	Policy   Policy
}

func (n *FilterNode) Name() string {
	return "filter.constraint"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		excluded, err := n.firstHit(ctx, rctx, item, n.Excludes)
		if err != nil {
			return nil, err
		}
		if excluded != "" {
			continue
		}

		c := rctx.Constraints
		var price float64
		if item.Product != nil {
			price = item.Product.Price
		}
		item.SetLabel(utils.LabelCategoryMatch, utils.Label{Value: utils.BoolValue(c.CategoryMatch(item.Product)), Source: "filter"})
		item.SetLabel(utils.LabelPriceInRange, utils.Label{Value: utils.BoolValue(c.PriceInRange(price)), Source: "filter"})

		reason, err := n.firstHit(ctx, rctx, item, n.Filters)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			item.SetLabel(utils.LabelPool, utils.Label{Value: utils.PoolPrimary, Source: "filter"})
			out = append(out, item)
			continue
		}

		if n.Policy == PolicyStrict {
			continue
		}
		item.SetLabel(utils.LabelPool, utils.Label{Value: utils.PoolFallback, Source: "filter"})
		item.PutLabel(utils.LabelFiltered, utils.Label{Value: "true", Source: reason})
		out = append(out, item)
	}

	return out, nil
}

// firstHit 返回第一个命中的过滤器名称，未命中返回空串。
func (n *FilterNode) firstHit(ctx context.Context, rctx *core.RecommendContext, item *core.Item, filters []Filter) (string, error) {
	for _, f := range filters {
		hit, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			if core.IsInvalidInput(err) {
				return "", err
			}
			continue
		}
		if hit {
			return f.Name(), nil
		}
	}
	return "", nil
}
