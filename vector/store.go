package vector

import (
	"fmt"
	"math"

	"github.com/rushteam/shopsense/core"
)

// Entry 是一条 (商品 ID, 向量)。ID 与向量成对存放，加载后不再依赖两个平行数组的位置对齐。
type Entry struct {
	ID     string
	Vector []float32
}

// Store 是进程内只读的 Embedding 表。
//
// 特点：
//   - 启动时加载一次，之后不可变，并发读无需加锁
//   - 向量在构建时做 L2 归一化，内积即余弦相似度
//   - 冷启动向量（全库均值）在构建时算好
type Store struct {
	entries  []Entry
	index    map[string]int
	dim      int
	centroid []float32
}

// NewStore 从有序条目构建 Store。
// 维度不一致或 ID 重复视为数据不一致，返回 DATA_INCONSISTENCY。
func NewStore(entries []Entry) (*Store, error) {
	s := &Store{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("vector: empty product id at row %d", i))
		}
		if s.dim == 0 {
			s.dim = len(e.Vector)
		}
		if len(e.Vector) != s.dim || s.dim == 0 {
			return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("vector: row %d has dimension %d, want %d", i, len(e.Vector), s.dim))
		}
		if _, dup := s.index[e.ID]; dup {
			return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDataInconsistency,
				fmt.Sprintf("vector: duplicate product id %q", e.ID))
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, Entry{ID: e.ID, Vector: Normalized(e.Vector)})
	}
	s.centroid = centroid(s.entries, s.dim)
	return s, nil
}

// Len 返回条目数；nil Store 视为空。
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Dim 返回向量维度。
func (s *Store) Dim() int {
	if s == nil {
		return 0
	}
	return s.dim
}

// Get 按商品 ID 取归一化向量，返回的切片只读。
func (s *Store) Get(id string) ([]float32, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.entries[i].Vector, true
}

// Entries 返回全部条目（只读）。
func (s *Store) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.entries
}

// Centroid 返回冷启动向量的副本。
func (s *Store) Centroid() []float32 {
	if s == nil || s.centroid == nil {
		return nil
	}
	out := make([]float32, len(s.centroid))
	copy(out, s.centroid)
	return out
}

// centroid 按分量对有限值求均值，再做 L2 归一化。
// 与 numpy.nanmean 不同，±Inf 和 NaN 一样被跳过：nanmean 下含 Inf 的分量变为非有限值，
// 随后被置 0；这里该分量取其余有限值的均值。
func centroid(entries []Entry, dim int) []float32 {
	if len(entries) == 0 || dim == 0 {
		return nil
	}
	sums := make([]float64, dim)
	counts := make([]int, dim)
	for _, e := range entries {
		for i, x := range e.Vector {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			sums[i] += f
			counts[i]++
		}
	}
	out := make([]float32, dim)
	for i := range out {
		if counts[i] > 0 {
			out[i] = float32(sums[i] / float64(counts[i]))
		}
	}
	ZeroNonFinite(out)
	Normalize(out)
	return out
}
