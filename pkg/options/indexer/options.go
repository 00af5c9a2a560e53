// Package indexer provides batch indexing options.
package indexer

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains indexer configuration.
type Options struct {
	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
	// Workers bounds concurrent embedding batches.
	Workers int `json:"workers" mapstructure:"workers"`
	// Manifest is a bbolt file recording indexed content hashes. Empty disables it.
	Manifest string `json:"manifest" mapstructure:"manifest"`
	// Watch keeps running and re-indexes files when they change.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BatchSize: 32,
		Workers:   4,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "indexer."
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Chunks per embedding request.")
	fs.IntVar(&o.Workers, p+"workers", o.Workers, "Concurrent embedding batches.")
	fs.StringVar(&o.Manifest, p+"manifest", o.Manifest, "bbolt manifest path used to skip unchanged chunks.")
	fs.BoolVar(&o.Watch, p+"watch", o.Watch, "Watch the input files and re-index on change.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("indexer.batch-size must be positive"))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("indexer.workers must be positive"))
	}
	return errs
}
