package core

import "math"

// Constraints 是调用方给出的过滤条件，未设置的字段不参与过滤与打分。
type Constraints struct {
	Category string   `json:"category,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`

	// Expr 是可选的 CEL 表达式，例如 `product.brand == "Acme" && product.price < 500.0`
	Expr string `json:"expr,omitempty"`
}

// HasCategory 是否给出了类目约束。
func (c Constraints) HasCategory() bool { return c.Category != "" }

// CategoryMatch 类目约束给出且与商品类目相等时返回 true。
func (c Constraints) CategoryMatch(p *Product) bool {
	return c.HasCategory() && p != nil && p.Category == c.Category
}

// PriceInRange 所有给出的价格边界都满足时返回 true；未给出边界视为满足。
func (c Constraints) PriceInRange(price float64) bool {
	if c.MinPrice != nil && price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && price > *c.MaxPrice {
		return false
	}
	return true
}

// PriceBounds 返回可用于价格邻近度打分的区间；两个边界都给出、有限且 min <= max 时 ok 为 true。
func (c Constraints) PriceBounds() (lo, hi float64, ok bool) {
	if c.MinPrice == nil || c.MaxPrice == nil {
		return 0, 0, false
	}
	lo, hi = *c.MinPrice, *c.MaxPrice
	if !finite(lo) || !finite(hi) || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// IsZero 没有任何约束。
func (c Constraints) IsZero() bool {
	return c.Category == "" && c.MinPrice == nil && c.MaxPrice == nil && c.Expr == ""
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Float64 返回 v 的指针，便于构造可选价格边界。
func Float64(v float64) *float64 { return &v }
