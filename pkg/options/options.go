// Package options holds the contract shared by every option group and the
// helpers the command packages use to register and validate them.
package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by each option group (http, log, rag, ...).
type IOptions interface {
	// Validate reports every problem at once. Implementations may fill
	// derived defaults while validating.
	Validate() []error

	// AddFlags registers the group's flags, optionally under prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join returns the dotted flag prefix for prefixes, e.g. "embedding." for
// ("embedding"), or "" when no prefix is given.
func Join(prefixes ...string) string {
	if len(prefixes) == 0 {
		return ""
	}
	return strings.Join(prefixes, ".") + "."
}

// Section validates o and labels each error with section, so that two
// groups sharing field names (embedding.llm.model, chat.llm.model) stay
// distinguishable in the aggregated report.
func Section(section string, o IOptions) []error {
	errs := o.Validate()
	for i, err := range errs {
		errs[i] = fmt.Errorf("%s: %w", section, err)
	}
	return errs
}
