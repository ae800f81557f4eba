package ir

import "time"

// Status is the lifecycle state of a mirror row. It tracks presence in the
// feed, not anything the feed says about the person.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Attribute keys the store lifts out of a payload into display columns.
const (
	AttrLastName   = "lastname"
	AttrFirstNames = "firstnames"
	AttrStatus     = "status"
)

// Entity is one normalized feed record, alive only for the duration of a run.
type Entity struct {
	NaturalID   string
	Source      string
	Attrs       Object
	Fingerprint string
}

// LastName returns the display last name, if the feed supplied one.
func (e Entity) LastName() string {
	s, _ := e.Attrs.Text(AttrLastName)
	return s
}

// FirstNames returns the display given names, if the feed supplied them.
func (e Entity) FirstNames() string {
	s, _ := e.Attrs.Text(AttrFirstNames)
	return s
}

// DerivedStatus is the status a normalizer computed from the record itself
// (e.g. an employee whose every job is terminated). It travels inside the
// payload and is distinct from the mirror row's Status.
func (e Entity) DerivedStatus() Status {
	s, _ := e.Attrs.Text(AttrStatus)
	return Status(s)
}

// ActiveRow is one entry of a snapshot load.
type ActiveRow struct {
	NaturalID   string
	Fingerprint string
}

// MirrorRecord is a persisted row of the local mirror. At most one exists
// per (NaturalID, Source).
type MirrorRecord struct {
	ID          int64
	NaturalID   string
	Source      string
	Status      Status
	UUID        string
	LastName    string
	FirstNames  string
	Fingerprint string
	Payload     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Operation names the mutation a changelog entry records.
type Operation string

const (
	OpInsert     Operation = "insert"
	OpUpdate     Operation = "update"
	OpReactivate Operation = "reactivate"
	OpDeactivate Operation = "deactivate"
	OpImport     Operation = "import"
)

// ChangeLogEntry is an append-only audit row. OldPayload is empty on insert,
// NewPayload is empty on deactivate.
type ChangeLogEntry struct {
	ID         int64     `json:"id,omitempty"`
	NaturalID  string    `json:"natural_id"`
	Source     string    `json:"source"`
	Operation  Operation `json:"operation"`
	CreatedAt  time.Time `json:"created_at"`
	OldPayload string    `json:"old_payload,omitempty"`
	NewPayload string    `json:"new_payload,omitempty"`
}
