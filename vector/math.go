package vector

import "math"

// Dot 计算内积，float64 累加。维度不一致时返回 0。
func Dot(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm 计算 L2 范数。
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize 原地做 L2 归一化并返回原范数。
// 范数为 0 或非有限值时保持原样（全零向量合法但不携带信息）。
func Normalize(v []float32) float64 {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return n
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return n
}

// Normalized 返回归一化后的副本，不修改入参。
func Normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	Normalize(out)
	return out
}

// ZeroNonFinite 原地把 NaN / Inf 分量置 0。
func ZeroNonFinite(v []float32) {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v[i] = 0
		}
	}
}
