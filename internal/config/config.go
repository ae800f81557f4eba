package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/reconcile"
	"github.com/roach88/sorsync/internal/store"
)

//go:embed schema.cue
var schemaSrc string

// Config is the decoded configuration file.
type Config struct {
	Database    Database `json:"database"`
	Writer      Writer   `json:"writer"`
	Sources     Sources  `json:"sources"`
	MetricsFile string   `json:"metrics_file"`
}

// Database selects the storage backend.
type Database struct {
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

// Writer tunes the circuit breaker around storage writes. The number of
// concurrent writes is fixed and not configurable.
type Writer struct {
	BreakerFailureThreshold int    `json:"breaker_failure_threshold"`
	BreakerTimeout          string `json:"breaker_timeout"`
}

// Sources names the source tag used for each XML extract kind.
type Sources struct {
	Student    string `json:"student"`
	Employee   string `json:"employee"`
	Instructor string `json:"instructor"`
}

// Default returns the configuration used when no file is given.
func Default() (Config, error) {
	return Parse(nil)
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates a YAML document against the schema and applies defaults.
// Empty input yields the defaults.
func Parse(data []byte) (Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return Config{}, fmt.Errorf("encode config: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := time.ParseDuration(cfg.Writer.BreakerTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid config: writer.breaker_timeout: %w", err)
	}
	return cfg, nil
}

// FeedSources returns the per-kind source tags for feed loading.
func (c Config) FeedSources() feed.Sources {
	return feed.Sources{
		Student:    c.Sources.Student,
		Employee:   c.Sources.Employee,
		Instructor: c.Sources.Instructor,
	}
}

// Breaker returns the writer's circuit breaker settings.
func (c Config) Breaker() reconcile.BreakerSettings {
	// Parse already validated the duration.
	timeout, _ := time.ParseDuration(c.Writer.BreakerTimeout)
	return reconcile.BreakerSettings{
		FailureThreshold: uint32(c.Writer.BreakerFailureThreshold),
		Timeout:          timeout,
	}
}

// StoreOptions returns the options for store.Open.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{store.WithMaxOpenConns(c.Database.MaxOpenConns)}
}
