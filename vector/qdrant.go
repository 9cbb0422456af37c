package vector

import (
	"context"
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rushteam/shopsense/core"
)

// QdrantIndex 把 Qdrant collection 适配为 core.VectorIndex。
// collection 需以 Cosine 距离离线构建好；商品 ID 优先取 payload 中的 product_id 字段，否则使用 point ID。
type QdrantIndex struct {
	conn       *grpc.ClientConn
	client     pb.PointsClient
	collection string

	// PayloadKey 是 payload 中商品 ID 的字段名，默认 product_id
	PayloadKey string
}

// NewQdrantIndex 连接 Qdrant gRPC 端口（例如 localhost:6334）。
func NewQdrantIndex(addr, collection string) (*QdrantIndex, error) {
	if collection == "" {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector: qdrant collection is required")
	}
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant dial %s: %w", addr, err)
	}
	return &QdrantIndex{
		conn:       conn,
		client:     pb.NewPointsClient(conn),
		collection: collection,
		PayloadKey: "product_id",
	}, nil
}

// NewQdrantIndexWithClient 使用已有的 PointsClient（测试或共享连接时使用）。
func NewQdrantIndexWithClient(client pb.PointsClient, collection string) *QdrantIndex {
	return &QdrantIndex{client: client, collection: collection, PayloadKey: "product_id"}
}

func (q *QdrantIndex) Name() string { return "qdrant" }

// Search 实现 core.VectorIndex 接口
func (q *QdrantIndex) Search(ctx context.Context, query []float32, topK int) ([]core.VectorSearchItem, error) {
	if q == nil || q.client == nil {
		return nil, core.ErrIndexNotReady
	}
	if topK <= 0 {
		return []core.VectorSearchItem{}, nil
	}

	resp, err := q.client.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         Normalized(query),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleVector, core.ErrorCodeUnavailable, "vector: qdrant search failed", err)
	}

	out := make([]core.VectorSearchItem, 0, len(resp.GetResult()))
	seen := make(map[string]struct{}, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		id := q.productID(p)
		if id == "" {
			continue
		}
		// Qdrant 已按分数降序返回，保留首次出现
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, core.VectorSearchItem{ID: id, Score: float64(p.GetScore())})
	}
	return out, nil
}

func (q *QdrantIndex) productID(p *pb.ScoredPoint) string {
	key := q.PayloadKey
	if key == "" {
		key = "product_id"
	}
	if v, ok := p.GetPayload()[key]; ok {
		switch kind := v.GetKind().(type) {
		case *pb.Value_StringValue:
			return kind.StringValue
		case *pb.Value_IntegerValue:
			return strconv.FormatInt(kind.IntegerValue, 10)
		}
	}
	if p.GetId() == nil {
		return ""
	}
	if u := p.GetId().GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(p.GetId().GetNum(), 10)
}

// Close 实现 core.VectorIndex 接口
func (q *QdrantIndex) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

var _ core.VectorIndex = (*QdrantIndex)(nil)
