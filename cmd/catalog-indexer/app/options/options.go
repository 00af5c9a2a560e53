// Package options contains flags and options for the catalog indexer.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/catalog-chat/internal/indexer"
	"github.com/kart-io/catalog-chat/pkg/app/cliflag"
	genericoptions "github.com/kart-io/catalog-chat/pkg/options"
	indexeropts "github.com/kart-io/catalog-chat/pkg/options/indexer"
	llmopts "github.com/kart-io/catalog-chat/pkg/options/llm"
	logopts "github.com/kart-io/catalog-chat/pkg/options/logger"
	milvusopts "github.com/kart-io/catalog-chat/pkg/options/milvus"
	qdrantopts "github.com/kart-io/catalog-chat/pkg/options/qdrant"
	ragopts "github.com/kart-io/catalog-chat/pkg/options/rag"
	storeopts "github.com/kart-io/catalog-chat/pkg/options/store"
)

// EmbeddingAPIKeyEnv is consulted when no embedding API key is configured.
const EmbeddingAPIKeyEnv = "NVIDIA_API_KEY"

// IndexerOptions contains the configuration options for the indexer.
type IndexerOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	RAGOptions       *ragopts.Options         `json:"rag" mapstructure:"rag"`
	StoreOptions     *storeopts.Options       `json:"store" mapstructure:"store"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	QdrantOptions    *qdrantopts.Options      `json:"qdrant" mapstructure:"qdrant"`
	IndexerOptions   *indexeropts.Options     `json:"indexer" mapstructure:"indexer"`
}

// NewIndexerOptions creates an IndexerOptions instance with default values.
// Documents are embedded as passages and provider calls are retried.
func NewIndexerOptions() *IndexerOptions {
	embedding := llmopts.NewEmbeddingOptions()
	embedding.InputType = "passage"
	embedding.MaxRetries = 3

	return &IndexerOptions{
		LogOptions:       logopts.NewOptions(),
		EmbeddingOptions: embedding,
		RAGOptions:       ragopts.NewOptions(),
		StoreOptions:     storeopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		QdrantOptions:    qdrantopts.NewOptions(),
		IndexerOptions:   indexeropts.NewOptions(),
	}
}

// Flags returns flags for the indexer by section name.
func (o *IndexerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"))
	o.IndexerOptions.AddFlags(fss.FlagSet("indexer"))
	return fss
}

// Complete completes all the required options.
func (o *IndexerOptions) Complete() error {
	if err := o.EmbeddingOptions.Complete(EmbeddingAPIKeyEnv); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	return nil
}

// Validate checks whether the options in IndexerOptions are valid.
func (o *IndexerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, genericoptions.Section("embedding", o.EmbeddingOptions)...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.IndexerOptions.Validate()...)

	switch o.StoreOptions.Backend {
	case storeopts.BackendMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	case storeopts.BackendQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	case storeopts.BackendMemory:
		errs = append(errs, fmt.Errorf("store.backend %q keeps nothing after the indexer exits", storeopts.BackendMemory))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds an indexer.Config for the given CSV files.
func (o *IndexerOptions) Config(files []string) (*indexer.Config, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	return &indexer.Config{
		LogOptions:       o.LogOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		RAGOptions:       o.RAGOptions,
		StoreOptions:     o.StoreOptions,
		MilvusOptions:    o.MilvusOptions,
		QdrantOptions:    o.QdrantOptions,
		IndexerOptions:   o.IndexerOptions,
		Files:            files,
	}, nil
}
