package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/sorsync/internal/ir"
)

// marshalPayload converts an entity's attributes to canonical JSON for storage.
func marshalPayload(attrs ir.Object) (string, error) {
	if attrs == nil {
		attrs = ir.Object{}
	}
	data, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalPayload parses a stored payload back into attributes.
// PostgreSQL returns JSONB in its own formatting, so the result is compared
// by value, never by bytes.
func UnmarshalPayload(data string) (ir.Object, error) {
	if data == "" {
		return ir.Object{}, nil
	}
	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
