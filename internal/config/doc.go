// Package config loads the optional sorsync configuration file.
//
// The file is YAML. It is decoded with gopkg.in/yaml.v3 and then unified
// with an embedded CUE definition (schema.cue) that rejects unknown keys,
// checks types and ranges, and fills defaults. Command-line flags override
// the resulting values; see internal/cli.
package config
