// Package indexer 将商品 CSV 导入向量存储。
package indexer

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	chatsvc "github.com/kart-io/catalog-chat/internal/chat"
	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/metrics"
	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/pkg/infra/app"
	"github.com/kart-io/catalog-chat/pkg/infra/pool"
	"github.com/kart-io/catalog-chat/pkg/infra/watcher"
	indexeropts "github.com/kart-io/catalog-chat/pkg/options/indexer"
	llmopts "github.com/kart-io/catalog-chat/pkg/options/llm"
	logopts "github.com/kart-io/catalog-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
	ragopts "github.com/kart-io/catalog-chat/pkg/options/rag"
	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

// Name is the name of the application.
const Name = "catalog-indexer"

// Config 索引任务配置。
type Config struct {
	LogOptions       *logopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	StoreOptions     *storeopts.Options
	MilvusOptions    *milvusopts.Options
	QdrantOptions    *qdrantopts.Options
	IndexerOptions   *indexeropts.Options
	Files            []string
}

// Runner 持有一次索引任务所需的资源。
type Runner struct {
	cfg      *Config
	indexer  *biz.Indexer
	store    store.VectorStore
	workers  *pool.Pool
	manifest *store.Manifest
	metrics  *metrics.ChatMetrics
}

// NewRunner 初始化日志、供应商、存储、清单和工作池。
func (cfg *Config) NewRunner(_ context.Context) (*Runner, error) {
	// 1. 初始化日志
	if err := cfg.LogOptions.Init(app.ServiceFields(Name)...); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 2. 初始化 Embedding 供应商
	embedProvider, err := chatsvc.NewEmbeddingProvider(cfg.EmbeddingOptions)
	if err != nil {
		return nil, err
	}

	// 3. 初始化向量存储
	vectorStore, err := store.Open(cfg.StoreOptions, cfg.MilvusOptions, cfg.QdrantOptions)
	if err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, store: vectorStore, metrics: metrics.GetChatMetrics()}

	// 4. 打开索引清单
	if cfg.IndexerOptions.Manifest != "" {
		r.manifest, err = store.OpenManifest(cfg.IndexerOptions.Manifest)
		if err != nil {
			r.Close(context.Background())
			return nil, fmt.Errorf("failed to open manifest: %w", err)
		}
		logger.Infow("Index manifest opened", "path", cfg.IndexerOptions.Manifest)
	}

	// 5. 初始化工作池
	r.workers, err = pool.NewPool("indexer", pool.WorkerPoolConfig(cfg.IndexerOptions.Workers))
	if err != nil {
		r.Close(context.Background())
		return nil, err
	}

	r.indexer = biz.NewIndexer(vectorStore, embedProvider, biz.NewDocumentLoader(cfg.RAGOptions.MaxChunkChars), r.workers, r.manifest, &biz.IndexerConfig{
		Collection:   cfg.RAGOptions.Collection,
		EmbeddingDim: cfg.RAGOptions.EmbeddingDim,
		BatchSize:    cfg.IndexerOptions.BatchSize,
	})
	return r, nil
}

// Run 索引全部文件；开启 watch 时继续监听文件变化直到 ctx 结束。
func (r *Runner) Run(ctx context.Context) error {
	defer r.Close(context.Background())

	if err := r.index(ctx, r.cfg.Files); err != nil {
		return err
	}
	if !r.cfg.IndexerOptions.Watch {
		return nil
	}

	w, err := watcher.New(r.cfg.Files, watcher.DefaultDebounce, func(ctx context.Context, path string) error {
		return r.index(ctx, []string{path})
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (r *Runner) index(ctx context.Context, files []string) error {
	report, err := r.indexer.IndexFiles(ctx, files)
	if report != nil {
		r.metrics.RecordIndexing(report.Indexed, err)
		for _, s := range report.SkippedFiles {
			logger.Warnw("file skipped", "path", s.Path, "error", s.Err.Error())
		}
		logger.Infow("Index run finished",
			"files", report.Files,
			"skipped", len(report.SkippedFiles),
			"chunks", report.Chunks,
			"unchanged", report.Unchanged,
			"indexed", report.Indexed,
			"rows_before", report.Before,
			"rows_after", report.After,
		)
	}
	return err
}

// Close 释放资源。
func (r *Runner) Close(ctx context.Context) {
	if r.workers != nil {
		r.workers.Release()
	}
	if r.manifest != nil {
		if err := r.manifest.Close(); err != nil {
			logger.Warnw("failed to close manifest", "error", err.Error())
		}
	}
	if r.store != nil {
		if err := r.store.Close(ctx); err != nil {
			logger.Warnw("failed to close vector store", "error", err.Error())
		}
	}
}
