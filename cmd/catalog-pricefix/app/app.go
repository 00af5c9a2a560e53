// Package app provides the catalog price conversion tool.
package app

import (
	"fmt"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/catalog-chat/internal/pkg/catalog"
	"github.com/kart-io/catalog-chat/pkg/app/cliflag"
	"github.com/kart-io/catalog-chat/pkg/infra/app"
	logopts "github.com/kart-io/catalog-chat/pkg/options/logger"
)

// Name is the name of the application.
const Name = "catalog-pricefix"

const commandDesc = `Catalog Price Fix

Rewrites every price column (a header containing "Price" or "MRP") of the
given CSV files from rupees into pounds. Cells that hold "na", nothing, or
no number are left as they are. Each file is replaced atomically.`

// ConvertOptions holds the conversion settings.
type ConvertOptions struct {
	Rate       float64          `json:"rate" mapstructure:"rate"`
	Symbol     string           `json:"symbol" mapstructure:"symbol"`
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`
}

// NewConvertOptions returns the INR to GBP defaults.
func NewConvertOptions() *ConvertOptions {
	return &ConvertOptions{
		Rate:       catalog.DefaultINRToGBP,
		Symbol:     catalog.DefaultCurrency,
		LogOptions: logopts.NewOptions(),
	}
}

// Flags returns the option flag sets.
func (o *ConvertOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.addFlags(fss.FlagSet("convert"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ConvertOptions) addFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&o.Rate, "rate", o.Rate, "Units of the target currency per rupee.")
	fs.StringVar(&o.Symbol, "symbol", o.Symbol, "Currency symbol written before converted amounts.")
}

// Complete completes the options.
func (o *ConvertOptions) Complete() error { return nil }

// Validate validates the options.
func (o *ConvertOptions) Validate() error {
	var errs []error
	if o.Rate <= 0 {
		errs = append(errs, fmt.Errorf("rate must be positive"))
	}
	if o.Symbol == "" {
		errs = append(errs, fmt.Errorf("symbol is required"))
	}
	errs = append(errs, o.LogOptions.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// NewApp creates the price conversion application.
func NewApp() *app.App {
	opts := NewConvertOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Convert CSV price columns from INR to GBP"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithArgs(cobra.MinimumNArgs(1)),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *ConvertOptions) app.RunFunc {
	return func(files []string) error {
		if err := opts.LogOptions.Init(app.ServiceFields(Name)...); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return convertFiles(catalog.NewPriceConverter(opts.Rate, opts.Symbol), files)
	}
}

// convertFiles 逐个转换文件，单个文件失败不影响其余文件。
func convertFiles(c *catalog.PriceConverter, files []string) error {
	var errs []error
	for _, path := range files {
		stats, err := c.ConvertFile(path)
		if err != nil {
			logger.Errorw("price conversion failed", "path", path, "error", err.Error())
			errs = append(errs, err)
			continue
		}
		logger.Infow("prices converted",
			"path", path,
			"rows", stats.Rows,
			"columns", stats.PriceColumns,
			"converted", stats.Converted,
			"passed_through", stats.PassedThru,
		)
	}
	return utilerrors.NewAggregate(errs)
}
