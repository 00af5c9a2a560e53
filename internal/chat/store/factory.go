package store

import (
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/pkg/component/milvus"
	"github.com/kart-io/catalog-chat/pkg/component/qdrant"
	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

// Open 按后端类型创建向量存储。
func Open(opts *storeopts.Options, milvusOpts *milvusopts.Options, qdrantOpts *qdrantopts.Options) (VectorStore, error) {
	switch opts.Backend {
	case storeopts.BackendMilvus:
		client, err := milvus.New(milvusOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		logger.Infow("Milvus client initialized", "address", milvusOpts.Address)
		return NewMilvusStore(client), nil

	case storeopts.BackendQdrant:
		client, err := qdrant.New(qdrantOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		logger.Infow("Qdrant client initialized", "address", qdrantOpts.Addr())
		return NewQdrantStore(client), nil

	case storeopts.BackendMemory:
		logger.Warn("Using in-memory vector store, data is lost on restart")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
