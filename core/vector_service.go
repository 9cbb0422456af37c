package core

import "context"

// VectorIndex 是 ANN 检索的领域接口。
//
// 约定：
//   - 查询向量与库内向量都必须是 L2 归一化的，内积即余弦相似度
//   - 结果按相似度降序，长度 <= topK，同一 ID 不重复出现
//   - 索引只读，服务期间不提供写入；重建属于离线流程
//   - 未加载时返回 ErrIndexNotReady，调用方降级为空结果
//
// 实现：
//   - vector.FlatIndex：进程内精确内积检索
//   - vector.QdrantIndex：Qdrant 远程检索
type VectorIndex interface {
	// Name 返回索引后端名称（用于日志/监控）
	Name() string

	// Search 向量搜索
	Search(ctx context.Context, query []float32, topK int) ([]VectorSearchItem, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	// ID 商品 ID
	ID string

	// Score 相似度分数
	Score float64
}

var (
	// ErrIndexNotReady 表示索引或向量库未加载
	ErrIndexNotReady = NewDomainError(ModuleVector, ErrorCodeNotReady, "vector: index not ready")
)
