package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"plain map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"plain slice", []any{"a", int64(2), true}, `["a",2,true]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"sfuid": String("301000001"),
		"reginfo": Object{
			"program":     Array{String("CMPT")},
			"affiliation": Array{String("UGRD")},
		},
	}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"reginfo":{"affiliation":["UGRD"],"program":["CMPT"]},"sfuid":"301000001"}`, string(out))
}

func TestMarshalCanonicalEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"quote and backslash", `say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"short escapes", "a\tb\nc", `"a\tb\nc"`},
		{"control char", "\x01", `"\u0001"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"invalid utf8 replaced", "a\xffb", "\"a\uFFFDb\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := String("Rene\u0301")
	composed := String("Ren\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(Object{"gone": Null{}})
	assert.ErrorContains(t, err, "null")

	_, err = MarshalCanonical(nil)
	assert.ErrorContains(t, err, "null")

	_, err = MarshalCanonical(map[string]any{"gpa": 3.5})
	assert.ErrorContains(t, err, "floats")

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported")
}

func TestToValue(t *testing.T) {
	v, err := ToValue(map[string]any{"jobs": []any{map[string]any{"status": "A"}}, "n": 3})
	require.NoError(t, err)
	assert.Equal(t, Object{"jobs": Array{Object{"status": String("A")}}, "n": Int(3)}, v)

	_, err = ToValue(map[string]any{"x": nil})
	assert.Error(t, err)
}
