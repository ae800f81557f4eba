package store

import (
	"testing"

	"github.com/roach88/sorsync/internal/ir"
)

func TestMarshalPayload_EmptyObject(t *testing.T) {
	for _, attrs := range []ir.Object{nil, {}} {
		json, err := marshalPayload(attrs)
		if err != nil {
			t.Fatalf("marshalPayload() failed: %v", err)
		}
		if json != "{}" {
			t.Errorf("marshalPayload() = %q, want %q", json, "{}")
		}
	}
}

func TestMarshalPayload_Canonical(t *testing.T) {
	attrs := ir.Object{
		"sfuid":    ir.String("301000001"),
		"lastname": ir.String("Smith"),
		"reginfo": ir.Object{
			"program": ir.Array{ir.String("CMPT")},
			"credits": ir.Int(15),
		},
	}
	json, err := marshalPayload(attrs)
	if err != nil {
		t.Fatalf("marshalPayload() failed: %v", err)
	}

	expected := `{"lastname":"Smith","reginfo":{"credits":15,"program":["CMPT"]},"sfuid":"301000001"}`
	if json != expected {
		t.Errorf("marshalPayload() = %q, want %q", json, expected)
	}
}

func TestMarshalPayload_RejectsNull(t *testing.T) {
	if _, err := marshalPayload(ir.Object{"x": ir.Null{}}); err == nil {
		t.Error("marshalPayload() with null should fail")
	}
}

func TestUnmarshalPayload(t *testing.T) {
	// PostgreSQL JSONB formatting, not canonical.
	obj, err := UnmarshalPayload(`{"sfuid": "301000001", "n": 3}`)
	if err != nil {
		t.Fatalf("UnmarshalPayload() failed: %v", err)
	}
	if obj["sfuid"] != ir.String("301000001") || obj["n"] != ir.Int(3) {
		t.Errorf("UnmarshalPayload() = %v", obj)
	}

	empty, err := UnmarshalPayload("")
	if err != nil || len(empty) != 0 {
		t.Errorf("UnmarshalPayload(\"\") = %v, %v", empty, err)
	}

	if _, err := UnmarshalPayload(`[1]`); err == nil {
		t.Error("UnmarshalPayload() of array should fail")
	}
}
