package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sorsync/internal/ir"
)

// maxImportLine bounds one JSONL line; payloads of large records exceed
// bufio.Scanner's 64 KiB default.
const maxImportLine = 16 << 20

// ImportResult reports an audit import.
type ImportResult struct {
	Path     string `json:"path"`
	Imported int    `json:"imported"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("Imported %d changelog entries from %s", r.Imported, r.Path)
}

// NewAuditImportCommand creates the audit-import command.
func NewAuditImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit-import <jsonl-file>",
		Short: "Append externally produced changelog entries",
		Long: `Append changelog entries from a JSON Lines file, one entry per line.

Each line is an object with natural_id, source and optionally operation
(default "import"), created_at, old_payload and new_payload. The mirror
itself is not touched. Every line is validated before the first one is
appended.

Examples:
  sorsync audit-import --db ./mirror.db legacy-audit.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runAuditImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	entries, err := readAuditEntries(path)
	if err != nil {
		out.Error(ErrCodeImportFailed, err.Error(), map[string]string{"path": path})
		return WrapExitError(ExitCommandError, "failed to read audit file", err)
	}

	_, st, err := opts.setup(out)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	for i, e := range entries {
		id, err := st.AppendChangeLog(ctx, e)
		if err != nil {
			out.Error(ErrCodeDatabase, err.Error(), map[string]int{"imported": i})
			return WrapExitError(ExitFailure, "failed to append changelog entry", err)
		}
		out.VerboseLog("appended %d: %s %s %s", id, e.Source, e.NaturalID, e.Operation)
	}
	return out.Success(ImportResult{Path: path, Imported: len(entries)})
}

// readAuditEntries decodes and validates every line of a JSONL file.
func readAuditEntries(path string) ([]ir.ChangeLogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []ir.ChangeLogEntry
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		var e ir.ChangeLogEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := validateAuditEntry(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateAuditEntry(e ir.ChangeLogEntry) error {
	if e.NaturalID == "" || e.Source == "" {
		return fmt.Errorf("natural_id and source are required")
	}
	switch e.Operation {
	case "", ir.OpInsert, ir.OpUpdate, ir.OpReactivate, ir.OpDeactivate, ir.OpImport:
	default:
		return fmt.Errorf("unknown operation %q", e.Operation)
	}
	for _, p := range []string{e.OldPayload, e.NewPayload} {
		if p == "" {
			continue
		}
		if _, err := ir.ParseObject([]byte(p)); err != nil {
			return fmt.Errorf("payload is not a JSON object: %w", err)
		}
	}
	return nil
}
