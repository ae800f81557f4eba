package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sorsync/internal/ir"
)

func TestParseJSON(t *testing.T) {
	doc := `{"source":"LIBRARY","id_field":"barcode","timestamp":"t1","records":[{"barcode":"29000","name":"Alice"}]}`
	f, err := ParseJSON(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, KindGeneric, f.Kind)
	assert.Equal(t, "LIBRARY", f.Source)
	assert.Equal(t, "barcode", f.IDField)
	assert.Equal(t, "t1", f.Timestamp)
	require.Len(t, f.Records, 1)
	assert.Equal(t, ir.String("Alice"), f.Records[0]["name"])
}

func TestParseJSON_DefaultsAndErrors(t *testing.T) {
	f, err := ParseJSON(strings.NewReader(`{"source":"X","records":[]}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultIDField, f.IDField)

	_, err = ParseJSON(strings.NewReader(`{"records":[]}`))
	assert.ErrorContains(t, err, "source is required")

	_, err = ParseJSON(strings.NewReader(`{"source":"X","extra":1}`))
	assert.Error(t, err, "unknown fields rejected")
}

func TestLoad_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	xmlPath := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte(`<x><student><sfuid>301000001</sfuid></student></x>`), 0644))
	f, err := Load(xmlPath, DefaultSources())
	require.NoError(t, err)
	assert.Equal(t, KindStudent, f.Kind)

	jsonPath := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"source":"X","records":[{"id":"1"}]}`), 0644))
	f, err = Load(jsonPath, DefaultSources())
	require.NoError(t, err)
	assert.Equal(t, KindGeneric, f.Kind)

	_, err = Load(filepath.Join(dir, "feed.csv"), DefaultSources())
	assert.Error(t, err)
}
