// Package session provides conversation session store options.
package session

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options contains session store configuration.
type Options struct {
	// Backend is memory (process lifetime) or redis.
	Backend string `json:"backend" mapstructure:"backend"`
	// KeyPrefix namespaces redis keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
	// TTL expires idle redis sessions; 0 keeps them forever.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:   BackendMemory,
		KeyPrefix: "catalog-chat:session:",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "session."
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Session store backend (memory|redis).")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Key prefix for the redis session backend.")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Idle expiry of redis sessions, 0 disables expiry.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	switch o.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown session.backend %q", o.Backend))
	}
	if o.Backend == BackendRedis && o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("session.key-prefix is required for the redis backend"))
	}
	if o.TTL < 0 {
		errs = append(errs, fmt.Errorf("session.ttl must not be negative"))
	}
	return errs
}
