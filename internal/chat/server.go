// Package chatsvc wires the catalog chat server.
package chatsvc

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/handler"
	"github.com/kart-io/catalog-chat/internal/chat/metrics"
	"github.com/kart-io/catalog-chat/internal/chat/router"
	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/pkg/component/redis"
	"github.com/kart-io/catalog-chat/pkg/infra/app"
	"github.com/kart-io/catalog-chat/pkg/infra/middleware"
	"github.com/kart-io/catalog-chat/pkg/infra/pool"
	"github.com/kart-io/catalog-chat/pkg/infra/server"
	httpserver "github.com/kart-io/catalog-chat/pkg/infra/server/http"
	"github.com/kart-io/catalog-chat/pkg/llm"
	httpopts "github.com/kart-io/catalog-chat/pkg/options/http"
	llmopts "github.com/kart-io/catalog-chat/pkg/options/llm"
	logopts "github.com/kart-io/catalog-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
	ragopts "github.com/kart-io/catalog-chat/pkg/options/rag"
	redisopts "github.com/kart-io/catalog-chat/pkg/options/redis"
	sessionopts "github.com/kart-io/catalog-chat/pkg/options/session"
	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

// Name is the name of the application.
const Name = "catalog-chat"

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "catalog"

var _ biz.Recorder = (*metrics.ChatMetrics)(nil)

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	StoreOptions     *storeopts.Options
	MilvusOptions    *milvusopts.Options
	QdrantOptions    *qdrantopts.Options
	SessionOptions   *sessionopts.Options
	RedisOptions     *redisopts.Options
}

// Server represents the chat server.
type Server struct {
	srv  *server.Manager
	http *httpserver.Server
}

// NewServer initializes and returns a new Server instance. Any missing or
// invalid configuration is reported here, before a request is served.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	if err := cfg.LogOptions.Init(app.ServiceFields(Name)...); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting chat service...")

	var cleanups []func(context.Context) error
	closeAll := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i](context.Background())
		}
	}

	// 2. 初始化 LLM 供应商
	embedProvider, err := NewEmbeddingProvider(cfg.EmbeddingOptions)
	if err != nil {
		return nil, err
	}
	chatProvider, err := NewChatProvider(cfg.ChatOptions)
	if err != nil {
		return nil, err
	}

	// 3. 初始化提示词模板
	template, err := NewPromptTemplate(cfg.RAGOptions.SystemPromptFile, cfg.RAGOptions.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	// 4. 初始化向量存储
	vectorStore, err := store.Open(cfg.StoreOptions, cfg.MilvusOptions, cfg.QdrantOptions)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, vectorStore.Close)

	collection := &store.CollectionConfig{
		Name:        cfg.RAGOptions.Collection,
		Description: "Product catalog rows",
		Dimension:   cfg.RAGOptions.EmbeddingDim,
	}
	if err := vectorStore.CreateCollection(ctx, collection); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to prepare collection %s: %w", collection.Name, err)
	}

	chatMetrics := metrics.GetChatMetrics()

	// 5. 开发模式下预加载内存存储
	if cfg.StoreOptions.Backend == storeopts.BackendMemory && len(cfg.RAGOptions.Preload) > 0 {
		if err := preload(ctx, cfg, vectorStore, embedProvider, chatMetrics); err != nil {
			closeAll()
			return nil, err
		}
	}

	// 6. 初始化会话存储
	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, err
	}
	if closeSessions != nil {
		cleanups = append(cleanups, closeSessions)
	}

	// 7. 初始化 Biz 层
	retriever := biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{
		Collection:     cfg.RAGOptions.Collection,
		TopK:           cfg.RAGOptions.TopK,
		MinScore:       cfg.RAGOptions.MinScore,
		CandidateLimit: cfg.RAGOptions.CandidateLimit,
	})
	chain := biz.NewAnswerChain(retriever, template, chatProvider, biz.ChainConfig{
		RetrievalTimeout:  cfg.RAGOptions.RetrievalTimeout,
		GenerationTimeout: cfg.RAGOptions.GenerationTimeout,
	}, biz.WithRecorder(chatMetrics))
	orchestrator := biz.NewOrchestrator(sessions, chain, chatMetrics)
	logger.Infow("Chat service initialized",
		"collection", cfg.RAGOptions.Collection,
		"top_k", cfg.RAGOptions.TopK,
		"min_score", cfg.RAGOptions.MinScore,
		"session.backend", cfg.SessionOptions.Backend,
	)

	// 8. 启用 W3C trace context 透传
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	// 9. 初始化 HTTP 服务器并注册路由
	httpServer := httpserver.NewServer(cfg.HTTPOptions,
		middleware.Recovery(cfg.HTTPOptions.Mode == gin.DebugMode),
		middleware.RequestID(),
		middleware.Logger("/healthz", "/metrics"),
	)
	router.Register(httpServer.Engine(),
		handler.NewChatHandler(orchestrator, cfg.RAGOptions.DefaultSession),
		handler.NewSystemHandler(vectorStore, sessions, chatMetrics, cfg.RAGOptions.Collection, MetricsNamespace).
			WithBreakers(breakers(embedProvider, chatProvider)...),
	)

	opts := []server.Option{
		server.WithServer(httpServer),
		server.WithShutdownTimeout(cfg.HTTPOptions.ShutdownTimeout),
	}
	for _, c := range cleanups {
		opts = append(opts, server.WithCleanup(c))
	}

	logger.Info("Chat service is ready")
	return &Server{srv: server.NewManager(opts...), http: httpServer}, nil
}

// Run starts the server and blocks until ctx is cancelled or a
// termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	return s.srv.Run(ctx)
}

func newSessionStore(ctx context.Context, cfg *Config) (biz.SessionStore, func(context.Context) error, error) {
	switch cfg.SessionOptions.Backend {
	case sessionopts.BackendRedis:
		client, err := redis.Open(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		logger.Infow("Redis session store initialized",
			"addr", cfg.RedisOptions.Addr(),
			"ttl", cfg.SessionOptions.TTL,
		)
		sessions := biz.NewRedisSessionStore(client, cfg.SessionOptions.KeyPrefix, cfg.SessionOptions.TTL)
		return sessions, func(context.Context) error { return client.Close() }, nil
	default:
		return biz.NewMemorySessionStore(), nil, nil
	}
}

func preload(ctx context.Context, cfg *Config, vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, recorder *metrics.ChatMetrics) error {
	workers, err := pool.NewPool("preload", pool.WorkerPoolConfig(4))
	if err != nil {
		return err
	}
	defer workers.Release()

	indexer := biz.NewIndexer(vectorStore, embedProvider, biz.NewDocumentLoader(cfg.RAGOptions.MaxChunkChars), workers, nil, &biz.IndexerConfig{
		Collection:   cfg.RAGOptions.Collection,
		EmbeddingDim: cfg.RAGOptions.EmbeddingDim,
	})
	report, err := indexer.IndexFiles(ctx, cfg.RAGOptions.Preload)
	if report != nil {
		recorder.RecordIndexing(report.Indexed, err)
	}
	if err != nil {
		return fmt.Errorf("failed to preload catalog: %w", err)
	}
	logger.Infow("Catalog preloaded",
		"files", report.Files,
		"chunks", report.Chunks,
		"indexed", report.Indexed,
	)
	return nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Store: %s, Session: %s\n", cfg.StoreOptions.Backend, cfg.SessionOptions.Backend)
}
