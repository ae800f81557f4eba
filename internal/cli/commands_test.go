package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "mirror.db")
	two := writeFile(t, dir, "two.json", twoPeopleFeed)
	one := writeFile(t, dir, "one.json", onePersonFeed)

	_, _, err := execute(t, "sync", "--db", db, two)
	require.NoError(t, err)
	_, _, err = execute(t, "sync", "--db", db, one)
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--db", db, "--source", "BADGES", "002")
	require.NoError(t, err)
	assert.Contains(t, stdout, "OPERATION")
	assert.Contains(t, stdout, "insert")
	assert.Contains(t, stdout, "deactivate")

	stdout, _, err = execute(t, "history", "--db", db, "--source", "BADGES", "--format", "json", "002")
	require.NoError(t, err)
	var resp struct {
		Data History `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, "insert", string(resp.Data.Entries[0].Operation))
	assert.Empty(t, resp.Data.Entries[0].OldPayload)
	assert.Empty(t, resp.Data.Entries[1].NewPayload)

	stdout, _, err = execute(t, "history", "--db", db, "--source", "BADGES", "999")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No changelog entries for 999")
}

func TestHistory_RequiresSource(t *testing.T) {
	_, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "m.db"), "001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "mirror.db")
	two := writeFile(t, dir, "two.json", twoPeopleFeed)
	one := writeFile(t, dir, "one.json", onePersonFeed)

	_, _, err := execute(t, "sync", "--db", db, two)
	require.NoError(t, err)
	_, _, err = execute(t, "sync", "--db", db, one)
	require.NoError(t, err)

	stdout, _, err := execute(t, "status", "--db", db, "--source", "BADGES", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, Status{Source: "BADGES", Active: 1, Inactive: 1, Total: 2}, resp.Data)
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mirror.db")

	stdout, _, err := execute(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Database ready (driver sqlite3, schema version 1)")

	// Idempotent.
	_, _, err = execute(t, "migrate", "--db", db)
	require.NoError(t, err)
}

func TestAuditImport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "mirror.db")
	path := writeFile(t, dir, "audit.jsonl", `{"natural_id":"001","source":"BADGES","created_at":"2019-03-01T10:00:00Z","new_payload":"{\"badge\":\"001\"}"}

{"natural_id":"001","source":"BADGES","operation":"deactivate","old_payload":"{\"badge\":\"001\"}"}
`)

	stdout, _, err := execute(t, "audit-import", "--db", db, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Imported 2 changelog entries")

	stdout, _, err = execute(t, "history", "--db", db, "--source", "BADGES", "--format", "json", "001")
	require.NoError(t, err)
	var resp struct {
		Data History `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, "import", string(resp.Data.Entries[0].Operation))
	assert.Equal(t, 2019, resp.Data.Entries[0].CreatedAt.Year())
	assert.Equal(t, "deactivate", string(resp.Data.Entries[1].Operation))

	status, _, err := execute(t, "status", "--db", db, "--source", "BADGES")
	require.NoError(t, err)
	assert.Contains(t, status, "total:    0", "the mirror is not touched")
}

func TestAuditImport_ValidatesBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "mirror.db")

	tests := []struct {
		name  string
		lines string
		want  string
	}{
		{"missing source", `{"natural_id":"001"}`, "line 1"},
		{"unknown field", `{"natural_id":"001","source":"S","who":"me"}`, "unknown field"},
		{"unknown operation", `{"natural_id":"001","source":"S","operation":"merge"}`, "unknown operation"},
		{"payload not an object", `{"natural_id":"001","source":"S","new_payload":"[1]"}`, "payload"},
		{"second line broken", "{\"natural_id\":\"001\",\"source\":\"S\"}\n{oops", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "audit.jsonl", tt.lines)
			_, _, err := execute(t, "audit-import", "--db", db, path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	stdout, _, err := execute(t, "history", "--db", db, "--source", "S", "001")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No changelog entries")
}
