package core

import (
	"math"
	"strconv"
	"strings"
)

// Product 是商品目录中的一行，加载后不可变。
type Product struct {
	ID       string  `json:"product_id"`
	Title    string  `json:"title"`
	Brand    string  `json:"brand,omitempty"` // 为空表示无品牌
	Category string  `json:"normalized_top_category"`
	Price    float64 `json:"price"`

	// Attributes 保留目录中的其余列（description、image 等），原样透传给调用方
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ParsePrice 解析价格；缺失、无法解析、非有限值或负数一律按 0 处理。
func ParsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return SanitizePrice(v)
}

// SanitizePrice 把非有限值与负数归零。
func SanitizePrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
