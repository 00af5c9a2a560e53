package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/catalog-chat/internal/pkg/textutil"
)

var _ VectorStore = (*MemoryStore)(nil)

type memoryCollection struct {
	dimension int
	order     []string
	chunks    map[string]*Chunk
}

// MemoryStore 是进程内的暴力检索实现，仅用于开发和测试。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// CreateCollection 创建集合，已存在时不做任何修改。
func (s *MemoryStore) CreateCollection(_ context.Context, config *CollectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[config.Name]; ok {
		return nil
	}
	s.collections[config.Name] = &memoryCollection{
		dimension: config.Dimension,
		chunks:    make(map[string]*Chunk),
	}
	return nil
}

func (s *MemoryStore) collection(name string) (*memoryCollection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}
	return c, nil
}

// Upsert 写入文档块副本。
func (s *MemoryStore) Upsert(_ context.Context, collection string, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if c.dimension > 0 && len(chunk.Embedding) != c.dimension {
			return fmt.Errorf("chunk %s has dimension %d, want %d", chunk.ID, len(chunk.Embedding), c.dimension)
		}
		cp := *chunk
		cp.Embedding = append([]float32(nil), chunk.Embedding...)
		if _, exists := c.chunks[chunk.ID]; !exists {
			c.order = append(c.order, chunk.ID)
		}
		c.chunks[chunk.ID] = &cp
	}
	return nil
}

// Search 计算与所有文档块的余弦相似度，分数相同时保持写入顺序。
func (s *MemoryStore) Search(_ context.Context, collection string, embedding []float32, topK int, minScore float32) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(c.order))
	for _, id := range c.order {
		chunk := c.chunks[id]
		score := textutil.Cosine(embedding, chunk.Embedding)
		if score < minScore {
			continue
		}
		results = append(results, &SearchResult{
			ID:      chunk.ID,
			Source:  chunk.Source,
			Row:     chunk.Row,
			Content: chunk.Content,
			Score:   score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// GetStats 返回集合中的文档块数量。
func (s *MemoryStore) GetStats(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(c.chunks)), nil
}

// Close 无需释放资源。
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
