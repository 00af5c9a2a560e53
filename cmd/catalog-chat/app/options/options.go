// Package options contains flags and options for initializing the chat server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	chatsvc "github.com/kart-io/catalog-chat/internal/chat"
	"github.com/kart-io/catalog-chat/pkg/app/cliflag"
	genericoptions "github.com/kart-io/catalog-chat/pkg/options"
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

// Environment variables consulted when no API key is configured.
const (
	EmbeddingAPIKeyEnv = "NVIDIA_API_KEY"
	ChatAPIKeyEnv      = "GROQ_API_KEY"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains retrieval and prompt configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// StoreOptions selects the vector store backend.
	StoreOptions *storeopts.Options `json:"store" mapstructure:"store"`

	// MilvusOptions contains Milvus configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// QdrantOptions contains Qdrant configuration.
	QdrantOptions *qdrantopts.Options `json:"qdrant" mapstructure:"qdrant"`

	// SessionOptions selects the session backend.
	SessionOptions *sessionopts.Options `json:"session" mapstructure:"session"`

	// RedisOptions contains Redis configuration for the redis session backend.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RAGOptions:       ragopts.NewOptions(),
		StoreOptions:     storeopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		QdrantOptions:    qdrantopts.NewOptions(),
		SessionOptions:   sessionopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"))
	o.SessionOptions.AddFlags(fss.FlagSet("session"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.EmbeddingOptions.Complete(EmbeddingAPIKeyEnv); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(ChatAPIKeyEnv); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, genericoptions.Section("embedding", o.EmbeddingOptions)...)
	errs = append(errs, genericoptions.Section("chat", o.ChatOptions)...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.SessionOptions.Validate()...)

	switch o.StoreOptions.Backend {
	case storeopts.BackendMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	case storeopts.BackendQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	}
	if o.SessionOptions.Backend == sessionopts.BackendRedis {
		errs = append(errs, o.RedisOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a chatsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*chatsvc.Config, error) {
	return &chatsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RAGOptions:       o.RAGOptions,
		StoreOptions:     o.StoreOptions,
		MilvusOptions:    o.MilvusOptions,
		QdrantOptions:    o.QdrantOptions,
		SessionOptions:   o.SessionOptions,
		RedisOptions:     o.RedisOptions,
	}, nil
}
