package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/reconcile"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Source      string
	MetricsFile string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs reconcile.IDGenerator
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <feed-file>",
		Short: "Reconcile the mirror against a feed extract",
		Long: `Reconcile the local mirror against one feed extract.

The feed is an XML extract (student, department or course records) or a
generic JSON feed. Its kind decides the source tag rows are stored under;
--source overrides it.

Exit codes:
  0 - Run completed (per-entity failures are counted in the report)
  1 - Run aborted before any write (mirror snapshot could not be loaded)
  2 - Command error (feed, config or database unusable)

Examples:
  sorsync sync --db ./mirror.db students.xml
  sorsync sync --config sorsync.yaml --metrics-file /var/lib/node_exporter/sorsync.prom hr.xml
  sorsync sync --db ./mirror.db --source BADGES --format json badges.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source tag for the feed's records (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format (overrides config)")

	return cmd
}

func runSync(opts *SyncOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cfg, st, err := opts.setup(out)
	if err != nil {
		return err
	}
	defer closeStore(st)

	f, err := feed.Load(path, cfg.FeedSources())
	if err != nil {
		out.Error(ErrCodeFeed, err.Error(), map[string]string{"path": path})
		return WrapExitError(ExitCommandError, "failed to load feed", err)
	}
	if opts.Source != "" {
		f.Source = opts.Source
	}
	slog.Info("feed loaded", "path", path, "kind", string(f.Kind), "source", f.Source, "records", len(f.Records))

	reg := prometheus.NewRegistry()
	metrics, err := reconcile.NewMetrics(reg)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to register metrics", err)
	}

	coordOpts := []reconcile.Option{
		reconcile.WithMetrics(metrics),
		reconcile.WithBreaker(cfg.Breaker()),
	}
	if opts.RunIDs != nil {
		coordOpts = append(coordOpts, reconcile.WithIDGenerator(opts.RunIDs))
	}
	coord := reconcile.New(st, coordOpts...)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := coord.Run(ctx, f)
	if err != nil {
		out.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "run failed", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		slog.Warn("run interrupted; writes not yet submitted were skipped", "run_id", report.RunID)
	}

	metricsFile := cfg.MetricsFile
	if opts.MetricsFile != "" {
		metricsFile = opts.MetricsFile
	}
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			// Writes are already committed.
			slog.Error("failed to write metrics file", "path", metricsFile, "error", err)
		}
	}

	return out.SuccessWithRun(report.RunID, report)
}
