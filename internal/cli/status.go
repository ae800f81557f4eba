package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sorsync/internal/ir"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Source string
}

// Status counts a source's mirror rows per lifecycle status.
type Status struct {
	Source   string `json:"source"`
	Active   int    `json:"active"`
	Inactive int    `json:"inactive"`
	Deleted  int    `json:"deleted"`
	Total    int    `json:"total"`
}

// WriteText prints the counts.
func (s Status) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, `Source %s
  active:   %d
  inactive: %d
  deleted:  %d
  total:    %d
`, s.Source, s.Active, s.Inactive, s.Deleted, s.Total)
	return err
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Count mirror rows per status",
		Long: `Count the mirror rows of one source per lifecycle status.

Examples:
  sorsync status --db ./mirror.db --source SIMS
  sorsync status --config sorsync.yaml --source HAP --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source tag (required)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	_, st, err := opts.setup(out)
	if err != nil {
		return err
	}
	defer closeStore(st)

	counts, err := st.CountByStatus(context.Background(), opts.Source)
	if err != nil {
		out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to count rows", err)
	}

	s := Status{
		Source:   opts.Source,
		Active:   counts[ir.StatusActive],
		Inactive: counts[ir.StatusInactive],
		Deleted:  counts[ir.StatusDeleted],
	}
	s.Total = s.Active + s.Inactive + s.Deleted
	return out.Success(s)
}
