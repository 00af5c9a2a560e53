// Package storeopts selects the vector store backend.
package storeopts

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported vector store backends.
const (
	BackendMilvus = "milvus"
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// Options contains vector store selection.
type Options struct {
	Backend string `json:"backend" mapstructure:"backend"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{Backend: BackendMilvus}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, options.Join(prefixes...)+"store.backend", o.Backend,
		"Vector store backend (milvus|qdrant|memory). memory is for development only.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	switch o.Backend {
	case BackendMilvus, BackendQdrant, BackendMemory:
		return nil
	default:
		return []error{fmt.Errorf("unknown store.backend %q", o.Backend)}
	}
}
