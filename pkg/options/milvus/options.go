// Package milvusopts configures the Milvus backend of the chunk store.
package milvusopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options holds the connection and IVF_FLAT index settings.
type Options struct {
	Address  string        `json:"address" mapstructure:"address"`
	Database string        `json:"database" mapstructure:"database"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"-" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`

	// NList is the number of IVF clusters, fixed when the index is built.
	NList int `json:"nlist" mapstructure:"nlist"`
	// NProbe is the number of clusters scanned per query. Higher values
	// trade latency for recall.
	NProbe int `json:"nprobe" mapstructure:"nprobe"`
}

// NewOptions returns options for a local standalone Milvus.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
		NList:    128,
		NProbe:   16,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "milvus."
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus address as host:port.")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database holding the chunk collection.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Timeout for connecting to Milvus.")
	fs.IntVar(&o.NList, p+"nlist", o.NList, "IVF cluster count used when the collection index is created.")
	fs.IntVar(&o.NProbe, p+"nprobe", o.NProbe, "IVF clusters scanned per search.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus.address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus.timeout must be positive"))
	}
	if o.NList < 1 || o.NList > 65536 {
		errs = append(errs, fmt.Errorf("milvus.nlist %d must be within [1, 65536]", o.NList))
	}
	if o.NProbe < 1 || o.NProbe > o.NList {
		errs = append(errs, fmt.Errorf("milvus.nprobe %d must be within [1, nlist]", o.NProbe))
	}
	return errs
}
