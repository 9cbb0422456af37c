// Package conv 把 YAML/JSON 解析出的 map[string]any 配置值转换为具体类型，供 Node 构建器使用。
package conv

import (
	"strconv"
)

// ToFloat64 将数字类型转为 float64。YAML 中的整数会解析成 int，JSON 中则是 float64。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// ConfigGet 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	t, ok := m[key].(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 按 key 取整数，兼容 int / int64 / float64 等数字类型。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	switch val := m[key].(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case uint64:
		return int64(val)
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	default:
		return defaultVal
	}
}

// SliceAnyToString 将 []any 转为 []string，数字按最短十进制表示（商品 ID 常被 YAML 解析成整数）。
// 其余类型的元素被跳过；v 不是切片时返回 nil。
func SliceAnyToString(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return append([]string(nil), ss...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
			continue
		}
		if f, ok := ToFloat64(e); ok {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return out
}
