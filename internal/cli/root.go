package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/config"
	"github.com/roach88/rulegen/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	LogFormat  string // "text" | "json", empty means the configured format

	// Resolved by prepare before a command runs.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rulegen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rulegen",
		Short: "rulegen - rule source code generator",
		Long: `Generate Go artifacts from rule sources.

rulegen reads rule text files (.drl) and decision tables (.csv, .xls, .xlsx),
groups their rules into packages and units, and emits one Go file per rule
plus package descriptors, package metadata and unit scaffolding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default is ./rulegen.cue or ./rulegen.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewCommentsCommand(opts))

	return cmd
}

// prepare validates the global flags and resolves configuration and logger.
// It is idempotent so subcommands can call it when run on their own.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.Format == "" {
		o.Format = "text"
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	if o.Config == nil {
		cfg, _, err := config.Load(cmd.Context(), config.LoadOptions{File: o.ConfigFile})
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig+": loading configuration", err)
		}
		o.Config = cfg
	}

	if o.Logger == nil {
		level := o.Config.Log.Level
		if o.Verbose {
			level = "debug"
		}
		format := o.Config.Log.Format
		if o.LogFormat != "" {
			format = o.LogFormat
		}
		logger, err := logging.New(logging.Options{Level: level, Format: format, Writer: cmd.ErrOrStderr()})
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig+": configuring logger", err)
		}
		o.Logger = logger
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
