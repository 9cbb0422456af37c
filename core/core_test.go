package core

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rushteam/shopsense/pkg/utils"
)

func TestDomainError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("search: %w", WrapDomainError(ModuleVector, ErrorCodeNotReady, "vector: index not ready", cause))

	if !errors.Is(err, ErrIndexNotReady) {
		t.Error("同 Module + Code 的错误应满足 errors.Is")
	}
	if !errors.Is(err, cause) {
		t.Error("应能 Unwrap 到底层原因")
	}
	if !IsNotReady(err) || IsNotFound(err) {
		t.Error("错误代码判断错误")
	}
	if got := GetDomainError(err); got == nil || got.Module != ModuleVector {
		t.Errorf("GetDomainError = %+v", got)
	}
	if IsDomainError(errors.New("plain")) || GetDomainError(nil) != nil {
		t.Error("普通错误不是 DomainError")
	}
	if errors.Is(ErrStoreNotFound, ErrIndexNotReady) {
		t.Error("不同 Module 的错误不应相等")
	}
	if !IsStoreNotFound(fmt.Errorf("get: %w", ErrStoreNotFound)) {
		t.Error("IsStoreNotFound 判断错误")
	}
}

func TestConstraints(t *testing.T) {
	p := &Product{Category: "home", Price: 100}
	tests := []struct {
		name     string
		c        Constraints
		catMatch bool
		inRange  bool
		bounds   bool
	}{
		{"none", Constraints{}, false, true, false},
		{"category hit", Constraints{Category: "home"}, true, true, false},
		{"category miss", Constraints{Category: "toys"}, false, true, false},
		{"min only", Constraints{MinPrice: Float64(150)}, false, false, false},
		{"both", Constraints{MinPrice: Float64(50), MaxPrice: Float64(100)}, false, true, true},
		{"inverted", Constraints{MinPrice: Float64(200), MaxPrice: Float64(100)}, false, false, false},
		{"infinite", Constraints{MinPrice: Float64(0), MaxPrice: Float64(math.Inf(1))}, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.CategoryMatch(p); got != tt.catMatch {
				t.Errorf("CategoryMatch = %v", got)
			}
			if got := tt.c.PriceInRange(p.Price); got != tt.inRange {
				t.Errorf("PriceInRange = %v", got)
			}
			if _, _, ok := tt.c.PriceBounds(); ok != tt.bounds {
				t.Errorf("PriceBounds ok = %v", ok)
			}
		})
	}
	if !(Constraints{}).IsZero() || (Constraints{Expr: "true"}).IsZero() {
		t.Error("IsZero 判断错误")
	}
}

func TestParsePrice(t *testing.T) {
	tests := map[string]float64{
		"":      0,
		" 12.5": 12.5,
		"abc":   0,
		"NaN":   0,
		"inf":   0,
		"-3":    0,
		"499":   499,
	}
	for raw, want := range tests {
		if got := ParsePrice(raw); got != want {
			t.Errorf("ParsePrice(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestItemLabels(t *testing.T) {
	it := NewItem("p1")
	it.PutLabel(utils.LabelFiltered, utils.Label{Value: "a", Source: "filter.category"})
	it.PutLabel(utils.LabelFiltered, utils.Label{Value: "b", Source: "filter.price"})
	if got := it.Labels[utils.LabelFiltered]; got.Value != "a|b" || got.Source != "filter.category,filter.price" {
		t.Errorf("PutLabel 应累积: %+v", got)
	}
	it.SetLabel(utils.LabelPool, utils.Label{Value: utils.PoolPrimary})
	it.SetLabel(utils.LabelPool, utils.Label{Value: utils.PoolFallback})
	if !it.InFallbackPool() {
		t.Error("SetLabel 应覆盖")
	}

	rctx := &RecommendContext{}
	if _, ok := rctx.GetLabel(utils.LabelColdStart); ok {
		t.Error("空 rctx 不应有标签")
	}
	rctx.PutLabel(utils.LabelColdStart, utils.Label{Value: "1"})
	if lbl, ok := rctx.GetLabel(utils.LabelColdStart); !ok || lbl.Value != "1" {
		t.Errorf("GetLabel = %+v %v", lbl, ok)
	}
}
