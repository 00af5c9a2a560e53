package biz_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/store"
	errs "github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/infra/pool"
)

func newTestIndexer(t *testing.T, embedder *keywordEmbedder, vs store.VectorStore, manifest *store.Manifest) *biz.Indexer {
	t.Helper()
	workers, err := pool.NewPool("index-test", pool.WorkerPoolConfig(2))
	require.NoError(t, err)
	t.Cleanup(workers.Release)

	return biz.NewIndexer(vs, embedder, biz.NewDocumentLoader(0), workers, manifest, &biz.IndexerConfig{
		Collection:   testCollection,
		EmbeddingDim: len(embedder.vocab),
		BatchSize:    2,
	})
}

func TestIndexer_IndexFiles(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	vs := store.NewMemoryStore()
	idx := newTestIndexer(t, embedder, vs, nil)

	path := writeCSV(t, "sarees.csv", sareeCSV)
	missing := filepath.Join(t.TempDir(), "nope.csv")

	report, err := idx.IndexFiles(ctx, []string{path, missing})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Len(t, report.SkippedFiles, 1)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, int64(3), report.Indexed)
	assert.Equal(t, int64(0), report.Before)
	assert.Equal(t, int64(3), report.After)

	res, err := vs.Search(ctx, testCollection, embedder.vector("saree"), 5, 0.5)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestIndexer_Idempotent(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	vs := store.NewMemoryStore()
	idx := newTestIndexer(t, embedder, vs, nil)
	path := writeCSV(t, "sarees.csv", sareeCSV)

	_, err := idx.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	report, err := idx.IndexFiles(ctx, []string{path})
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Before)
	assert.Equal(t, int64(3), report.After)
}

func TestIndexer_ManifestSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	manifest, err := store.OpenManifest(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	defer manifest.Close()

	idx := newTestIndexer(t, embedder, store.NewMemoryStore(), manifest)
	path := writeCSV(t, "sarees.csv", sareeCSV)

	first, err := idx.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.Indexed)
	calls := embedder.Calls()

	second, err := idx.IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 3, second.Unchanged)
	assert.Equal(t, int64(0), second.Indexed)
	assert.Equal(t, calls, embedder.Calls(), "unchanged chunks must not be embedded again")
}

func TestIndexer_ManifestResetWhenCollectionDropped(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	manifest, err := store.OpenManifest(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	defer manifest.Close()
	path := writeCSV(t, "sarees.csv", sareeCSV)

	_, err = newTestIndexer(t, embedder, store.NewMemoryStore(), manifest).IndexFiles(ctx, []string{path})
	require.NoError(t, err)

	// 新的空集合，manifest 沿用旧记录
	fresh := store.NewMemoryStore()
	report, err := newTestIndexer(t, embedder, fresh, manifest).IndexFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unchanged)
	assert.Equal(t, int64(3), report.Indexed)
	assert.Equal(t, int64(3), report.After)
}

func TestIndexer_EmbeddingFailure(t *testing.T) {
	embedder := newKeywordEmbedder()
	embedder.err = errors.New("429 too many requests")
	idx := newTestIndexer(t, embedder, store.NewMemoryStore(), nil)

	report, err := idx.IndexFiles(context.Background(), []string{writeCSV(t, "sarees.csv", sareeCSV)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIngestion))
	assert.Equal(t, int64(0), report.Indexed)
}
