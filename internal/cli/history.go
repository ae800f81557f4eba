package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sorsync/internal/ir"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Source string
}

// History is the changelog of one entity, oldest first.
type History struct {
	NaturalID string              `json:"natural_id"`
	Source    string              `json:"source"`
	Entries   []ir.ChangeLogEntry `json:"entries"`
	verbose   bool
}

// WriteText prints one line per entry; payloads are shown in verbose mode.
func (h History) WriteText(w io.Writer) error {
	if len(h.Entries) == 0 {
		_, err := fmt.Fprintf(w, "No changelog entries for %s in %s\n", h.NaturalID, h.Source)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tOPERATION")
	for _, e := range h.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.CreatedAt.Format(time.RFC3339Nano), e.Operation)
		if h.verbose {
			if e.OldPayload != "" {
				fmt.Fprintf(tw, "\t  old:\t%s\n", e.OldPayload)
			}
			if e.NewPayload != "" {
				fmt.Fprintf(tw, "\t  new:\t%s\n", e.NewPayload)
			}
		}
	}
	return tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <natural-id>",
		Short: "Show the changelog of one entity",
		Long: `Show every changelog entry recorded for one entity, oldest first.

Examples:
  sorsync history --db ./mirror.db --source SIMS 301234567
  sorsync history --db ./mirror.db --source HAP 301234567 --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source tag (required)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runHistory(opts *HistoryOptions, naturalID string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	_, st, err := opts.setup(out)
	if err != nil {
		return err
	}
	defer closeStore(st)

	entries, err := st.ReadChangeLog(context.Background(), naturalID, opts.Source)
	if err != nil {
		out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read changelog", err)
	}
	if entries == nil {
		entries = []ir.ChangeLogEntry{}
	}

	return out.Success(History{
		NaturalID: naturalID,
		Source:    opts.Source,
		Entries:   entries,
		verbose:   opts.Verbose,
	})
}
