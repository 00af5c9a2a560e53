package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(context.Background(), &CollectionConfig{Name: "products", Dimension: 2}))
	return s
}

func TestMemoryStore_CreateCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	require.NoError(t, s.Upsert(ctx, "products", []*Chunk{{ID: "a", Embedding: []float32{1, 0}}}))
	require.NoError(t, s.CreateCollection(ctx, &CollectionConfig{Name: "products", Dimension: 2}))

	n, err := s.GetStats(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	require.NoError(t, s.Upsert(ctx, "products", []*Chunk{{ID: "a", Content: "old", Embedding: []float32{1, 0}}}))
	require.NoError(t, s.Upsert(ctx, "products", []*Chunk{{ID: "a", Content: "new", Embedding: []float32{1, 0}}}))

	n, err := s.GetStats(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err := s.Search(ctx, "products", []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Content)
}

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	require.NoError(t, s.Upsert(ctx, "products", []*Chunk{
		{ID: "far", Content: "far", Embedding: []float32{0, 1}},
		{ID: "near", Content: "near", Embedding: []float32{1, 0.1}},
		{ID: "mid", Content: "mid", Embedding: []float32{1, 1}},
	}))

	tests := []struct {
		name     string
		topK     int
		minScore float32
		want     []string
	}{
		{name: "全部结果按分数降序", topK: 0, minScore: -1, want: []string{"near", "mid", "far"}},
		{name: "topK 截断", topK: 2, minScore: -1, want: []string{"near", "mid"}},
		{name: "阈值过滤", topK: 0, minScore: 0.5, want: []string{"near", "mid"}},
		{name: "阈值过高返回空", topK: 5, minScore: 0.999, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, "products", []float32{1, 0}, tt.topK, tt.minScore)
			require.NoError(t, err)

			got := make([]string, 0, len(res))
			for _, r := range res {
				got = append(got, r.ID)
				assert.GreaterOrEqual(t, r.Score, tt.minScore)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	_, err := s.Search(ctx, "missing", []float32{1, 0}, 5, 0)
	assert.Error(t, err)

	err = s.Upsert(ctx, "products", []*Chunk{{ID: "bad", Embedding: []float32{1, 0, 0}}})
	assert.Error(t, err)
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("abc")
	assert.Equal(t, a, PointID("abc"))
	assert.NotEqual(t, a, PointID("abd"))
	assert.Len(t, a, 36)
}
