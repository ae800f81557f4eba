package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/sorsync/internal/ir"
)

// Kind tags the shape of a feed's records. Each kind has its own normalizer.
type Kind string

const (
	KindStudent    Kind = "student"
	KindEmployee   Kind = "employee"
	KindInstructor Kind = "instructor"
	KindGeneric    Kind = "generic"
)

// DefaultIDField is the natural id attribute of generic feeds that don't name one.
const DefaultIDField = "id"

// ErrUnrecognized is returned for an extract whose root holds none of the known record kinds.
var ErrUnrecognized = errors.New("extracted data unrecognized")

// Sources maps the XML extract kinds to the source tag their records are stored under.
type Sources struct {
	Student    string
	Employee   string
	Instructor string
}

// DefaultSources returns the tags the registry, HR and course feeds have always used.
func DefaultSources() Sources {
	return Sources{
		Student:    "SIMS",
		Employee:   "HAP",
		Instructor: "SIMSINSTRUCT",
	}
}

// For returns the source tag for kind, or "" for kinds that carry their own.
func (s Sources) For(kind Kind) string {
	switch kind {
	case KindStudent:
		return s.Student
	case KindEmployee:
		return s.Employee
	case KindInstructor:
		return s.Instructor
	default:
		return ""
	}
}

// Feed is one full extract: every record currently valid in the source.
type Feed struct {
	Kind      Kind
	Source    string
	IDField   string
	Timestamp string
	Records   []ir.Object
}

// Load reads a feed file, choosing the decoder by extension.
func Load(path string, sources Sources) (Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Feed{}, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(f, sources)
	case ".json":
		return ParseJSON(f)
	default:
		return Feed{}, fmt.Errorf("unsupported feed file %q: want .xml or .json", path)
	}
}
