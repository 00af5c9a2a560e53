package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

func TestPointID(t *testing.T) {
	a := PointID("products.csv#1")
	assert.Equal(t, a, PointID("products.csv#1"), "相同 ID 映射到相同的 UUID")
	assert.NotEqual(t, a, PointID("products.csv#2"))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

// exerciseBackend 对任意后端验证幂等建表、覆盖写入与阈值检索。
func exerciseBackend(t *testing.T, s VectorStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := "catalog_chat_test_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	cfg := &CollectionConfig{Name: collection, Dimension: 2}
	require.NoError(t, s.CreateCollection(ctx, cfg))
	require.NoError(t, s.CreateCollection(ctx, cfg), "重复建表应成功")

	chunks := []*Chunk{
		{ID: "p.csv#1", Source: "p.csv", Row: 1, Content: "saree £4.74", Embedding: []float32{1, 0}},
		{ID: "p.csv#2", Source: "p.csv", Row: 2, Content: "kurta £9.49", Embedding: []float32{0, 1}},
	}
	require.NoError(t, s.Upsert(ctx, collection, chunks))
	require.NoError(t, s.Upsert(ctx, collection, chunks), "重复写入不产生重复数据")

	require.Eventually(t, func() bool {
		n, err := s.GetStats(ctx, collection)
		return err == nil && n == 2
	}, 10*time.Second, 200*time.Millisecond)

	results, err := s.Search(ctx, collection, []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p.csv#1", results[0].ID)
	assert.Equal(t, "saree £4.74", results[0].Content)
	assert.Equal(t, 1, results[0].Row)
}

func TestQdrantBackend(t *testing.T) {
	addr := os.Getenv("QDRANT_HOST")
	if addr == "" {
		t.Skip("QDRANT_HOST not set")
	}
	opts := qdrantopts.NewOptions()
	opts.Host = addr

	s, err := Open(&storeopts.Options{Backend: storeopts.BackendQdrant}, nil, opts)
	require.NoError(t, err)
	defer s.Close(context.Background())

	exerciseBackend(t, s)
}

func TestMilvusBackend(t *testing.T) {
	addr := os.Getenv("MILVUS_ADDR")
	if addr == "" {
		t.Skip("MILVUS_ADDR not set")
	}
	opts := milvusopts.NewOptions()
	opts.Address = addr

	s, err := Open(&storeopts.Options{Backend: storeopts.BackendMilvus}, opts, nil)
	require.NoError(t, err)
	defer s.Close(context.Background())

	exerciseBackend(t, s)
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryStore())
}
