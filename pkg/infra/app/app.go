// Package app builds the cobra root command shared by the catalog binaries.
//
// A run goes through the same steps for every binary: .env files, then the
// YAML config file, then CATALOG_*-style environment variables, then flags
// given on the command line. Options are completed and validated before the
// RunFunc sees them.
//
//	app.NewApp(
//	    app.WithName("catalog-indexer"),
//	    app.WithOptions(opts),
//	    app.WithArgs(cobra.MinimumNArgs(1)),
//	    app.WithRunFunc(run(opts)),
//	).Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/catalog-chat/pkg/app/cliflag"
)

// CliOptions is implemented by the options struct of each binary. Fields
// carry mapstructure tags matching the config file keys.
type CliOptions interface {
	Flags() cliflag.NamedFlagSets
	Complete() error
	Validate() error
}

// RunFunc runs the binary with the positional arguments left after flag
// parsing.
type RunFunc func(args []string) error

// Option configures an App.
type Option func(*App)

// App wraps the root command of one binary.
type App struct {
	name     string
	short    string
	long     string
	opts     CliOptions
	run      RunFunc
	subs     []*cobra.Command
	args     cobra.PositionalArgs
	envFiles []string

	silence   bool
	noVersion bool
	noConfig  bool

	v   *viper.Viper
	cmd *cobra.Command
}

func WithName(name string) Option               { return func(a *App) { a.name = name } }
func WithShortDescription(s string) Option      { return func(a *App) { a.short = s } }
func WithDescription(s string) Option           { return func(a *App) { a.long = s } }
func WithOptions(opts CliOptions) Option        { return func(a *App) { a.opts = opts } }
func WithRunFunc(run RunFunc) Option            { return func(a *App) { a.run = run } }
func WithArgs(args cobra.PositionalArgs) Option { return func(a *App) { a.args = args } }

// WithCommands adds sub commands, e.g. catalog-indexer qa-join.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subs = append(a.subs, cmds...) }
}

// WithEnvFiles replaces the default ".env". Missing files are skipped and
// variables already in the environment win.
func WithEnvFiles(files ...string) Option {
	return func(a *App) { a.envFiles = files }
}

// WithSilence stops cobra from printing the returned error.
func WithSilence() Option { return func(a *App) { a.silence = true } }

// WithNoVersion drops the --version flag.
func WithNoVersion() Option { return func(a *App) { a.noVersion = true } }

// WithNoConfig drops the --config flag and config file lookup.
func WithNoConfig() Option { return func(a *App) { a.noConfig = true } }

// NewApp creates the App and its root command.
func NewApp(opts ...Option) *App {
	a := &App{
		name:     filepath.Base(os.Args[0]),
		envFiles: []string{".env"},
		v:        viper.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.cmd = &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.long,
		Args:          a.args,
		SilenceUsage:  true,
		SilenceErrors: a.silence,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, args)
		},
	}
	a.cmd.SetOut(os.Stdout)
	a.cmd.SetErr(os.Stderr)

	pfs := a.cmd.PersistentFlags()
	if !a.noConfig {
		pfs.StringP("config", "c", "", "Config file. Defaults to <name>.yaml in ., ./configs, ~/.<name> or /etc/<name>.")
	}
	if !a.noVersion {
		version.AddFlags(pfs)
	}
	pfs.BoolP("help", "h", false, "Help for "+a.name)

	if a.opts != nil {
		fss := a.opts.Flags()
		fss.AddTo(a.cmd.Flags())
	}
	a.cmd.AddCommand(a.subs...)
	return a
}

func (a *App) execute(cmd *cobra.Command, args []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}
	if err := loadEnvFiles(a.envFiles); err != nil {
		return err
	}
	if !a.noConfig && a.opts != nil {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}
	if a.opts != nil {
		if err := a.opts.Complete(); err != nil {
			return err
		}
		if err := a.opts.Validate(); err != nil {
			return err
		}
	}
	if a.run == nil {
		return nil
	}
	return a.run(args)
}

// Run executes the root command and exits non-zero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command exposes the root command, mostly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
