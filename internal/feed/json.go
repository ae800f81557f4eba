package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/sorsync/internal/ir"
)

type jsonFeed struct {
	Source    string      `json:"source"`
	IDField   string      `json:"id_field"`
	Timestamp string      `json:"timestamp"`
	Records   []ir.Object `json:"records"`
}

// ParseJSON decodes a generic feed:
//
//	{"source": "LIBRARY", "id_field": "barcode", "timestamp": "...", "records": [{...}]}
//
// id_field defaults to "id".
func ParseJSON(r io.Reader) (Feed, error) {
	var raw jsonFeed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Feed{}, fmt.Errorf("parse json feed: %w", err)
	}
	if raw.Source == "" {
		return Feed{}, fmt.Errorf("parse json feed: source is required")
	}

	idField := raw.IDField
	if idField == "" {
		idField = DefaultIDField
	}

	return Feed{
		Kind:      KindGeneric,
		Source:    raw.Source,
		IDField:   idField,
		Timestamp: raw.Timestamp,
		Records:   raw.Records,
	}, nil
}
