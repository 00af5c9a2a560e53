// Package qdrantopts provides options for the Qdrant gRPC client.
package qdrantopts

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Qdrant client configuration.
type Options struct {
	Host    string        `json:"host" mapstructure:"host"`
	Port    int           `json:"port" mapstructure:"port"`
	APIKey  string        `json:"-" mapstructure:"api-key"`
	UseTLS  bool          `json:"use-tls" mapstructure:"use-tls"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults. 6334 is the Qdrant gRPC port.
func NewOptions() *Options {
	return &Options{
		Host:    "localhost",
		Port:    6334,
		Timeout: 10 * time.Second,
	}
}

// Addr returns host:port.
func (o *Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "qdrant."
	fs.StringVar(&o.Host, p+"host", o.Host, "Qdrant host.")
	fs.IntVar(&o.Port, p+"port", o.Port, "Qdrant gRPC port.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Qdrant API key.")
	fs.BoolVar(&o.UseTLS, p+"use-tls", o.UseTLS, "Use TLS for the gRPC connection.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-call timeout for Qdrant operations.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("qdrant host is required"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("qdrant port %d is out of range", o.Port))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("qdrant timeout must be positive"))
	}
	return errs
}
