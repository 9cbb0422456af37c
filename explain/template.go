package explain

import (
	"context"
	"strconv"

	"github.com/rushteam/shopsense/core"
)

// Template 是基于规则的说明生成器：统计行为商品的类目，引用出现最多的一个。
type Template struct {
	Catalog ProductLookup
}

func (t *Template) Explain(_ context.Context, req Request) Explanation {
	return Explanation{Text: t.Text(req), Source: SourceTemplate}
}

// Text 返回模板文本。
func (t *Template) Text(req Request) string {
	base := "This product aligns with your browsing behavior."
	if cat := t.topCategory(req.Events); cat != "" {
		base = "You recently explored several " + cat + " items. This product fits those interests."
	}

	var price float64
	var brand string
	if req.Product != nil {
		price, brand = req.Product.Price, req.Product.Brand
	}
	p := strconv.FormatFloat(price, 'f', -1, 64)
	if brand != "" {
		return base + " It is a " + brand + " product priced at ₹" + p + "."
	}
	return base + " Price: ₹" + p + "."
}

// topCategory 返回行为商品中出现次数最多的类目，同数时取先出现的；无可用类目返回空串。
func (t *Template) topCategory(events []core.Event) string {
	if t == nil || t.Catalog == nil {
		return ""
	}
	counts := make(map[string]int)
	var order []string
	for _, ev := range events {
		p, ok := t.Catalog.Get(ev.ProductID)
		if !ok || p.Category == "" {
			continue
		}
		if counts[p.Category] == 0 {
			order = append(order, p.Category)
		}
		counts[p.Category]++
	}
	best, bestN := "", 0
	for _, cat := range order {
		if counts[cat] > bestN {
			best, bestN = cat, counts[cat]
		}
	}
	return best
}

var _ Explainer = (*Template)(nil)
