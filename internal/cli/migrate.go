package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateResult reports the database the schema was applied to.
type MigrateResult struct {
	Driver        string `json:"driver"`
	SchemaVersion int    `json:"schema_version"`
}

func (r MigrateResult) String() string {
	return fmt.Sprintf("Database ready (driver %s, schema version %d)", r.Driver, r.SchemaVersion)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the mirror schema",
		Long: `Create the mirror tables if they do not exist and report the schema version.

Opening the database for any command applies the schema; migrate does only
that, which is useful before granting a sync job its first run.

Examples:
  sorsync migrate --db ./mirror.db
  sorsync migrate --driver postgres --db "postgres://sorsync@db/sorsync?sslmode=disable"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}
	return cmd
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	_, st, err := opts.setup(out)
	if err != nil {
		return err
	}
	defer closeStore(st)

	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read schema version", err)
	}
	return out.Success(MigrateResult{Driver: st.Driver(), SchemaVersion: version})
}
