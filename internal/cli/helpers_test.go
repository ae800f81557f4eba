package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const twoPeopleFeed = `{
  "source": "BADGES",
  "id_field": "badge",
  "timestamp": "2024-01-15T02:00:00Z",
  "records": [
    {"badge": "001", "lastname": "Lovelace", "firstnames": "Ada"},
    {"badge": "002", "lastname": "Hopper", "firstnames": "Grace"}
  ]
}`

const onePersonFeed = `{
  "source": "BADGES",
  "id_field": "badge",
  "records": [
    {"badge": "001", "lastname": "Lovelace", "firstnames": "Ada"}
  ]
}`

const studentsXML = `<?xml version="1.0" encoding="UTF-8"?>
<extract Timestamp="2024-01-15 02:00:00">
  <student>
    <sfuid>301000001</sfuid>
    <lastname>Doe</lastname>
    <firstnames>Jane</firstnames>
    <reginfo><affiliation>UGRD</affiliation></reginfo>
  </student>
  <student>
    <sfuid>301000002</sfuid>
    <lastname>Roe</lastname>
    <firstnames>Richard</firstnames>
  </student>
</extract>`
