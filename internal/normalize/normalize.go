package normalize

import (
	"fmt"
	"log/slog"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
)

// NaturalIDKey is the attribute every normalized person entity carries its
// natural id under.
const NaturalIDKey = "sfuid"

// Result is the output of one normalization pass.
type Result struct {
	// Entities holds one entity per distinct natural id.
	Entities map[string]ir.Entity

	// Order lists natural ids in first-sighting feed order.
	Order []string

	// Dropped counts records excluded for a missing or invalid natural id.
	Dropped int

	// Duplicates counts records whose natural id was already seen and that
	// were discarded rather than merged.
	Duplicates int
}

func newResult() *Result {
	return &Result{Entities: make(map[string]ir.Entity)}
}

// add stores a first sighting. It reports false when the id is already known.
func (r *Result) add(id, source string, attrs ir.Object) bool {
	if _, ok := r.Entities[id]; ok {
		return false
	}
	r.Entities[id] = ir.Entity{NaturalID: id, Source: source, Attrs: attrs}
	r.Order = append(r.Order, id)
	return true
}

// Normalizer turns the records of one feed into entities.
type Normalizer interface {
	Normalize(f feed.Feed) (Result, error)
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(f feed.Feed) (Result, error)

// Normalize calls fn(f).
func (fn NormalizerFunc) Normalize(f feed.Feed) (Result, error) {
	return fn(f)
}

// ForKind returns the normalizer for a feed kind.
func ForKind(kind feed.Kind) (Normalizer, error) {
	switch kind {
	case feed.KindStudent:
		return NormalizerFunc(Students), nil
	case feed.KindEmployee:
		return NormalizerFunc(Employees), nil
	case feed.KindInstructor:
		return NormalizerFunc(Instructors), nil
	case feed.KindGeneric:
		return NormalizerFunc(Generic), nil
	default:
		return nil, fmt.Errorf("no normalizer for feed kind %q", kind)
	}
}

// Normalize runs the normalizer matching f.Kind.
func Normalize(f feed.Feed) (Result, error) {
	n, err := ForKind(f.Kind)
	if err != nil {
		return Result{}, err
	}
	return n.Normalize(f)
}

// coerceList replaces obj[key] with its list form when present.
func coerceList(obj ir.Object, key string) {
	if v, ok := obj[key]; ok {
		obj[key] = ir.AsList(v)
	}
}

// naturalID reads a text or integer id attribute.
func naturalID(obj ir.Object, key string) string {
	switch v := obj[key].(type) {
	case ir.String:
		return string(v)
	case ir.Int:
		return fmt.Sprintf("%d", int64(v))
	default:
		return ""
	}
}

func logDuplicate(source, id string) {
	slog.Debug("duplicate natural id in feed, keeping first occurrence",
		"source", source, "natural_id", id)
}
