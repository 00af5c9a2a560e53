package biz

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/infra/pool"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// Collection 集合名称。
	Collection string
	// EmbeddingDim 嵌入向量维度。
	EmbeddingDim int
	// BatchSize 每次向量化请求的文档块数量。
	BatchSize int
}

// IndexReport 一次索引的统计。
type IndexReport struct {
	// Files 成功读取的文件数。
	Files int
	// SkippedFiles 无法读取的文件。
	SkippedFiles []SkippedSource
	// Chunks 读取到的文档块数。
	Chunks int
	// Unchanged 因内容未变化而跳过的文档块数。
	Unchanged int
	// Indexed 成功写入的文档块数。
	Indexed int64
	// Before / After 索引前后集合中的数量。
	Before, After int64
}

// Indexer 负责批量向量化并写入向量存储。
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	loader        *DocumentLoader
	workers       *pool.Pool
	manifest      *store.Manifest
	config        *IndexerConfig
}

// NewIndexer 创建索引器实例。manifest 可以为 nil。
func NewIndexer(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	loader *DocumentLoader,
	workers *pool.Pool,
	manifest *store.Manifest,
	config *IndexerConfig,
) *Indexer {
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return &Indexer{
		store:         vectorStore,
		embedProvider: embedProvider,
		loader:        loader,
		workers:       workers,
		manifest:      manifest,
		config:        config,
	}
}

// EnsureCollection 创建集合（已存在时不做修改）。
func (i *Indexer) EnsureCollection(ctx context.Context) error {
	err := i.store.CreateCollection(ctx, &store.CollectionConfig{
		Name:        i.config.Collection,
		Description: "product catalog chunks",
		Dimension:   i.config.EmbeddingDim,
	})
	if err != nil {
		return errors.ErrIngestion.WithCause(fmt.Errorf("create collection: %w", err))
	}
	return nil
}

// IndexFiles 读取文件并写入向量存储。
func (i *Indexer) IndexFiles(ctx context.Context, paths []string) (*IndexReport, error) {
	loaded := i.loader.Load(paths)

	report, err := i.IndexChunks(ctx, loaded.Chunks)
	if report != nil {
		report.Files = len(paths) - len(loaded.Skipped)
		report.SkippedFiles = loaded.Skipped
	}
	return report, err
}

// IndexChunks 向量化并写入文档块。相同 ID 的文档块会被覆盖，
// 因此重复索引同一文件不会产生重复数据。
func (i *Indexer) IndexChunks(ctx context.Context, chunks []*store.Chunk) (*IndexReport, error) {
	report := &IndexReport{Chunks: len(chunks)}

	// 1. 确保集合存在
	if err := i.EnsureCollection(ctx); err != nil {
		return report, err
	}

	before, err := i.store.GetStats(ctx, i.config.Collection)
	if err != nil {
		logger.Warnw("failed to read collection stats", "collection", i.config.Collection, "error", err.Error())
	}
	report.Before = before
	logger.Infow("indexing started", "collection", i.config.Collection, "rows", before, "chunks", len(chunks))

	// 2. 过滤未变化的文档块
	pending := chunks
	if i.manifest != nil {
		if err == nil && before == 0 {
			if err := i.resetStaleManifest(); err != nil {
				return report, errors.ErrIngestion.WithCause(err)
			}
		}
		pending, err = i.manifest.Pending(i.config.Collection, chunks)
		if err != nil {
			return report, errors.ErrIngestion.WithCause(err)
		}
	}
	report.Unchanged = len(chunks) - len(pending)

	// 3. 分批并发向量化并写入
	batches := splitBatches(pending, i.config.BatchSize)
	var indexed atomic.Int64
	err = i.workers.Each(ctx, len(batches), func(ctx context.Context, n int) error {
		if err := i.indexBatch(ctx, batches[n]); err != nil {
			logger.Warnw("batch failed", "batch", n, "size", len(batches[n]), "error", err.Error())
			return err
		}
		indexed.Add(int64(len(batches[n])))
		return nil
	})
	report.Indexed = indexed.Load()

	after, statErr := i.store.GetStats(ctx, i.config.Collection)
	if statErr != nil {
		logger.Warnw("failed to read collection stats", "collection", i.config.Collection, "error", statErr.Error())
	}
	report.After = after

	logger.Infow("indexing completed",
		"collection", i.config.Collection,
		"indexed", report.Indexed,
		"unchanged", report.Unchanged,
		"rows_before", report.Before,
		"rows_after", report.After,
	)

	if err != nil {
		return report, errors.ErrIngestion.WithCause(err)
	}
	return report, nil
}

// resetStaleManifest 集合为空而 manifest 仍有记录时，说明远端集合已被删除或重建。
func (i *Indexer) resetStaleManifest() error {
	recorded, err := i.manifest.Count(i.config.Collection)
	if err != nil || recorded == 0 {
		return err
	}
	logger.Warnw("collection is empty but manifest has entries, re-indexing all chunks",
		"collection", i.config.Collection, "recorded", recorded)
	return i.manifest.Reset(i.config.Collection)
}

func (i *Indexer) indexBatch(ctx context.Context, batch []*store.Chunk) error {
	texts := make([]string, len(batch))
	for idx, c := range batch {
		texts[idx] = c.Content
	}

	embeddings, err := i.embedProvider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(embeddings), len(batch))
	}

	// 写入副本，避免修改调用方持有的文档块
	out := make([]*store.Chunk, len(batch))
	for idx, c := range batch {
		cp := *c
		cp.Embedding = embeddings[idx]
		out[idx] = &cp
	}

	if err := i.store.Upsert(ctx, i.config.Collection, out); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if i.manifest != nil {
		if err := i.manifest.Mark(i.config.Collection, batch); err != nil {
			return err
		}
	}
	return nil
}

func splitBatches(chunks []*store.Chunk, size int) [][]*store.Chunk {
	var batches [][]*store.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}
