package filter

import (
	"context"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pkg/dsl"
)

// CategoryFilter 在请求给出类目时，过滤类目不一致的候选。
type CategoryFilter struct{}

func (f *CategoryFilter) Name() string { return "filter.category" }

func (f *CategoryFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	c := rctx.Constraints
	return c.HasCategory() && !c.CategoryMatch(item.Product), nil
}

// PriceFilter 过滤价格不在 [min, max] 内的候选，未给出的边界不限制。
type PriceFilter struct{}

func (f *PriceFilter) Name() string { return "filter.price" }

func (f *PriceFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item.Product == nil {
		return true, nil
	}
	return !rctx.Constraints.PriceInRange(item.Product.Price), nil
}

// ExprFilter 用 CEL 表达式约束候选，表达式为 false 时视为违反。
// Expr 为空时使用请求级的 Constraints.Expr。
type ExprFilter struct {
	Expr string
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	expr := f.Expr
	if expr == "" {
		expr = rctx.Constraints.Expr
	}
	if expr == "" {
		return false, nil
	}
	ok, err := dsl.NewEval(item).Evaluate(expr)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// DefaultFilters 返回请求约束对应的过滤器组合。
func DefaultFilters() []Filter {
	return []Filter{&CategoryFilter{}, &PriceFilter{}, &ExprFilter{}}
}
