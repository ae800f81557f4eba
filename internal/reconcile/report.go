package reconcile

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// progressEvery is how often, in affected rows per category, progress is logged.
const progressEvery = 1000

// Report is the end-of-run summary. Inserted, Updated, Reactivated and
// Removed count rows actually affected.
type Report struct {
	RunID         string        `json:"run_id"`
	Source        string        `json:"source"`
	FeedTimestamp string        `json:"feed_timestamp,omitempty"`
	Seen          int           `json:"seen"`
	Dropped       int           `json:"dropped"`
	Duplicates    int           `json:"duplicates"`
	Inserted      int           `json:"inserted"`
	Updated       int           `json:"updated"`
	Reactivated   int           `json:"reactivated"`
	Removed       int           `json:"removed"`
	Unchanged     int           `json:"unchanged"`
	Known         int           `json:"known"`
	Missed        int           `json:"missed"`
	Failed        int           `json:"failed"`
	Duration      time.Duration `json:"duration_ns"`
}

// Writes returns the number of rows the run changed.
func (r Report) Writes() int {
	return r.Inserted + r.Updated + r.Reactivated + r.Removed
}

// WriteText prints the report the way operators read it.
func (r Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, `Run %s (%s)
Extract time stamp:      %s
Entities in feed:        %d
Dropped (invalid id):    %d
Duplicates:              %d
Users with updates:      %d
Users reactivated:       %d
New users added:         %d
Users removed from feed: %d
Unchanged:               %d
Known (concurrent):      %d
Missed (0 rows):         %d
Failed:                  %d
Duration:                %s
`,
		r.RunID, r.Source, r.FeedTimestamp,
		r.Seen, r.Dropped, r.Duplicates,
		r.Updated, r.Reactivated, r.Inserted, r.Removed,
		r.Unchanged, r.Known, r.Missed, r.Failed,
		r.Duration.Round(time.Millisecond),
	)
	return err
}

// counters aggregates write results delivered concurrently by the Writer.
type counters struct {
	mu     sync.Mutex
	source string
	runID  string
	report Report
}

// add folds one write result in. Only rows actually affected are counted.
func (c *counters) add(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Err != nil {
		c.report.Failed++
		slog.Error("write failed",
			"run_id", c.runID,
			"source", res.Task.Source,
			"natural_id", res.Task.NaturalID,
			"outcome", res.Outcome.String(),
			"error", res.Err,
		)
		return
	}

	if res.Affected == 0 {
		if res.Outcome == NoOpPresentButKnown {
			c.report.Known++
		} else {
			c.report.Missed++
		}
		slog.Debug("write affected no rows",
			"run_id", c.runID,
			"source", res.Task.Source,
			"natural_id", res.Task.NaturalID,
			"outcome", res.Outcome.String(),
		)
		return
	}

	var n *int
	switch res.Outcome {
	case Insert:
		n = &c.report.Inserted
	case Update:
		n = &c.report.Updated
	case Reactivate:
		n = &c.report.Reactivated
	case Deactivate:
		n = &c.report.Removed
		slog.Info("removed from feed, setting inactive",
			"run_id", c.runID,
			"source", res.Task.Source,
			"natural_id", res.Task.NaturalID,
		)
	default:
		return
	}
	*n++
	if *n%progressEvery == 0 {
		slog.Info("progress",
			"run_id", c.runID,
			"source", c.source,
			"outcome", res.Outcome.String(),
			"count", *n,
		)
	}
}

func (c *counters) addUnchanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Unchanged++
}

func (c *counters) addFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Failed++
}

func (c *counters) snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}
