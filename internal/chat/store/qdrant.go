package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kart-io/catalog-chat/pkg/component/qdrant"
)

var _ VectorStore = (*QdrantStore)(nil)

// payload 字段名与 milvus 组件的列名一致。
const (
	fieldChunkID = "chunk_id"
	fieldSource  = "source"
	fieldRow     = "row"
	fieldContent = "content"
)

// QdrantStore 实现基于 Qdrant 的向量存储。
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore 创建 Qdrant 存储实例。
func NewQdrantStore(client *qdrant.Client) *QdrantStore {
	return &QdrantStore{client: client}
}

// PointID 将文档块 ID 映射为 Qdrant 要求的 UUID，映射是确定性的。
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// CreateCollection 创建 Qdrant 集合（余弦距离）。
func (s *QdrantStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	return s.client.EnsureCollection(ctx, config.Name, config.Dimension)
}

// Upsert 批量写入文档块。原始 ID 保存在 payload 中。
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []*Chunk) error {
	points := make([]qdrant.Point, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		points = append(points, qdrant.Point{
			UUID:   PointID(chunk.ID),
			Vector: chunk.Embedding,
			Strings: map[string]string{
				fieldChunkID: chunk.ID,
				fieldSource:  chunk.Source,
				fieldContent: chunk.Content,
			},
			Ints: map[string]int64{fieldRow: int64(chunk.Row)},
		})
	}
	if err := s.client.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("failed to upsert into qdrant: %w", err)
	}
	return nil
}

// Search 执行向量相似度搜索，阈值由 Qdrant 服务端过滤。
func (s *QdrantStore) Search(ctx context.Context, collection string, embedding []float32, topK int, minScore float32) ([]*SearchResult, error) {
	hits, err := s.client.Search(ctx, collection, embedding, topK, minScore)
	if err != nil {
		return nil, fmt.Errorf("failed to search qdrant: %w", err)
	}

	results := make([]*SearchResult, len(hits))
	for i, h := range hits {
		results[i] = fromHit(h)
	}
	return results, nil
}

// fromHit 还原 payload。旧数据没有 chunk_id 时退回点的 UUID。
func fromHit(h qdrant.Hit) *SearchResult {
	r := &SearchResult{
		ID:      h.Payload[fieldChunkID].GetStringValue(),
		Source:  h.Payload[fieldSource].GetStringValue(),
		Row:     int(h.Payload[fieldRow].GetIntegerValue()),
		Content: h.Payload[fieldContent].GetStringValue(),
		Score:   h.Score,
	}
	if r.ID == "" {
		r.ID = h.UUID
	}
	return r
}

// GetStats 获取集合中的点数量。
func (s *QdrantStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return s.client.Count(ctx, collection)
}

// Close 关闭 gRPC 连接。
func (s *QdrantStore) Close(_ context.Context) error {
	return s.client.Close()
}
