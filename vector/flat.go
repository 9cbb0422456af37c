package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/shopsense/core"
)

// FlatIndex 是进程内的精确内积索引（等价于 FAISS IndexFlatIP）。
// 库内向量已归一化，查询向量在比较前归一化，内积即余弦相似度。
// 只读，并发安全。
type FlatIndex struct {
	store *Store
}

// NewFlatIndex 基于 Store 构建索引；store 为空时索引处于 NOT_READY 状态。
func NewFlatIndex(store *Store) *FlatIndex {
	return &FlatIndex{store: store}
}

func (f *FlatIndex) Name() string { return "flat_ip" }

// Len 返回索引条目数。
func (f *FlatIndex) Len() int {
	if f == nil {
		return 0
	}
	return f.store.Len()
}

// Search 实现 core.VectorIndex 接口。
// 结果按相似度降序，同分按库内位置；非有限相似度排在最后，由调用方剔除。
func (f *FlatIndex) Search(ctx context.Context, query []float32, topK int) ([]core.VectorSearchItem, error) {
	if f.Len() == 0 {
		return nil, core.ErrIndexNotReady
	}
	if len(query) != f.store.Dim() {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput,
			fmt.Sprintf("vector: query dimension %d, want %d", len(query), f.store.Dim()))
	}
	if topK <= 0 {
		return []core.VectorSearchItem{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Normalized(query)
	entries := f.store.Entries()
	scored := make([]core.VectorSearchItem, len(entries))
	for i, e := range entries {
		scored[i] = core.VectorSearchItem{ID: e.ID, Score: Dot(q, e.Vector)}
	}

	// 按分数降序排序，NaN 视为最小
	sort.SliceStable(scored, func(i, j int) bool {
		return sortKey(scored[i].Score) > sortKey(scored[j].Score)
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Close 实现 core.VectorIndex 接口
func (f *FlatIndex) Close() error { return nil }

func sortKey(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

var _ core.VectorIndex = (*FlatIndex)(nil)
