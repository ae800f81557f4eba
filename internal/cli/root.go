package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sorsync/internal/config"
	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is the optional YAML config file. Driver and DSN override its
	// database section when set.
	Config string
	Driver string
	DSN    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sorsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "sorsync",
		Version: ir.Version,
		Short: "sorsync - system-of-record mirror reconciliation",
		Long: `Keep a local mirror of a system-of-record feed in step with the feed.

Each sync run classifies every feed entity against the mirror's active rows,
inserts, updates or reactivates what changed, deactivates what vanished, and
records every mutation in an append-only changelog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DSN, "db", "", "database DSN; a file path for sqlite3 (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3|postgres (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewAuditImportCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// configureLogging installs the process-wide slog handler. Logs go to w so
// they never mix with command output.
func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads --config, or returns the defaults when it is unset.
func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.Config == "" {
		return config.Default()
	}
	return config.Load(o.Config)
}

// openStore opens the database named by cfg with flag overrides applied.
func (o *RootOptions) openStore(cfg config.Config) (*store.Store, error) {
	driver := cfg.Database.Driver
	if o.Driver != "" {
		driver = o.Driver
	}
	dsn := cfg.Database.DSN
	if o.DSN != "" {
		dsn = o.DSN
	}
	slog.Debug("opening database", "driver", driver)
	return store.Open(driver, dsn, cfg.StoreOptions()...)
}

// setup loads the config and opens the store, mapping failures to exit errors.
func (o *RootOptions) setup(f *OutputFormatter) (config.Config, *store.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		f.Error(ErrCodeConfig, err.Error(), nil)
		return config.Config{}, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := o.openStore(cfg)
	if err != nil {
		f.Error(ErrCodeDatabase, err.Error(), nil)
		return config.Config{}, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return cfg, st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
