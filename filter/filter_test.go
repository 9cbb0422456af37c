package filter

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rushteam/shopsense/core"
	"github.com/rushteam/shopsense/pkg/utils"
)

type mapCatalog map[string]*core.Product

func (m mapCatalog) Get(id string) (*core.Product, bool) {
	p, ok := m[id]
	return p, ok
}

var testCatalog = mapCatalog{
	"p1": {ID: "p1", Brand: "Acme", Category: "apparel", Price: 100},
	"p2": {ID: "p2", Brand: "Zeta", Category: "electronics", Price: 900},
	"p3": {ID: "p3", Brand: "Acme", Category: "apparel", Price: 2000},
}

func candidates(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
		out[i].Similarity = 0.5
		out[i].Rank = i
	}
	return out
}

func hydrated(t *testing.T, ids ...string) []*core.Item {
	t.Helper()
	items, err := (&HydrateNode{Catalog: testCatalog}).Process(context.Background(), nil, candidates(ids...))
	if err != nil {
		t.Fatal(err)
	}
	return items
}

func TestHydrateNode(t *testing.T) {
	items := candidates("p1", "ghost", "p2", "p3")
	items[2].Similarity = math.NaN()
	items[3].Similarity = math.Inf(1)

	out, err := (&HydrateNode{Catalog: testCatalog}).Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process 失败: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p1" || out[0].Product == nil {
		t.Errorf("只应保留 p1 并回填商品: %+v", out)
	}
}

func TestFilterNode_FallbackPolicy(t *testing.T) {
	rctx := &core.RecommendContext{Constraints: core.Constraints{Category: "apparel", MaxPrice: core.Float64(1000)}}
	node := &FilterNode{Filters: DefaultFilters()}

	out, err := node.Process(context.Background(), rctx, hydrated(t, "p1", "p2", "p3"))
	if err != nil {
		t.Fatalf("Process 失败: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("fallback 策略不应丢弃候选，实际 %d", len(out))
	}

	tests := []struct {
		id       string
		pool     string
		catMatch string
		inRange  string
	}{
		{"p1", utils.PoolPrimary, "1", "1"},
		{"p2", utils.PoolFallback, "0", "1"},
		{"p3", utils.PoolFallback, "1", "0"},
	}
	for i, tt := range tests {
		it := out[i]
		if it.ID != tt.id {
			t.Fatalf("顺序应保持不变: %s != %s", it.ID, tt.id)
		}
		if got := it.LabelValue(utils.LabelPool); got != tt.pool {
			t.Errorf("%s pool = %s, want %s", tt.id, got, tt.pool)
		}
		if got := it.LabelValue(utils.LabelCategoryMatch); got != tt.catMatch {
			t.Errorf("%s category_match = %s, want %s", tt.id, got, tt.catMatch)
		}
		if got := it.LabelValue(utils.LabelPriceInRange); got != tt.inRange {
			t.Errorf("%s price_in_range = %s, want %s", tt.id, got, tt.inRange)
		}
	}
	if out[1].Labels[utils.LabelFiltered].Source != "filter.category" {
		t.Errorf("p2 应记录命中的过滤器: %+v", out[1].Labels)
	}
}

func TestFilterNode_StrictPolicy(t *testing.T) {
	rctx := &core.RecommendContext{Constraints: core.Constraints{Category: "apparel", MaxPrice: core.Float64(1000)}}
	node := &FilterNode{Filters: DefaultFilters(), Policy: PolicyStrict}

	out, err := node.Process(context.Background(), rctx, hydrated(t, "p1", "p2", "p3"))
	if err != nil {
		t.Fatalf("Process 失败: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p1" {
		t.Errorf("strict 策略只应保留 p1: %+v", out)
	}
}

func TestFilterNode_NoConstraints(t *testing.T) {
	out, err := (&FilterNode{Filters: DefaultFilters()}).Process(context.Background(), &core.RecommendContext{}, hydrated(t, "p1", "p2"))
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range out {
		if it.InFallbackPool() || it.LabelValue(utils.LabelCategoryMatch) != "0" {
			t.Errorf("无约束时应全部进入主池且 category_match=0: %+v", it.Labels)
		}
	}
}

func TestFilterNode_Expr(t *testing.T) {
	rctx := &core.RecommendContext{Constraints: core.Constraints{Expr: `product.brand == "Acme"`}}
	out, err := (&FilterNode{Filters: DefaultFilters()}).Process(context.Background(), rctx, hydrated(t, "p1", "p2"))
	if err != nil {
		t.Fatal(err)
	}
	if out[0].InFallbackPool() || !out[1].InFallbackPool() {
		t.Errorf("表达式过滤结果错误: %v / %v", out[0].Labels, out[1].Labels)
	}

	rctx.Constraints.Expr = `product.brand ==`
	if _, err := (&FilterNode{Filters: DefaultFilters()}).Process(context.Background(), rctx, hydrated(t, "p1")); !core.IsInvalidInput(err) {
		t.Errorf("非法表达式应返回 INVALID_INPUT，实际 %v", err)
	}
}

type brokenFilter struct{}

func (brokenFilter) Name() string { return "filter.broken" }
func (brokenFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("backend down")
}

func TestFilterNode_ErrorSkipsFilter(t *testing.T) {
	out, err := (&FilterNode{Filters: []Filter{brokenFilter{}}}).Process(context.Background(), &core.RecommendContext{}, hydrated(t, "p1"))
	if err != nil {
		t.Fatalf("普通过滤器错误不应中断: %v", err)
	}
	if len(out) != 1 || out[0].InFallbackPool() {
		t.Errorf("出错的过滤器应被跳过: %+v", out)
	}
}

func TestFilterNode_Excludes(t *testing.T) {
	node := &FilterNode{Excludes: []Filter{NewBlocklistFilter([]string{"p2"})}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, hydrated(t, "p1", "p2", "p3"))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "p1" || out[1].ID != "p3" {
		t.Errorf("屏蔽商品应被剔除: %+v", out)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"", PolicyFallback, true},
		{"fallback", PolicyFallback, true},
		{"strict", PolicyStrict, true},
		{"loose", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePolicy(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePolicy(%q) = %v,%v", tt.in, got, ok)
		}
	}
}
