package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading_snapshot", StateLoadingSnapshot.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(99)", State(99).String())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(StateIdle, StateLoadingSnapshot))
	assert.True(t, canTransition(StateDraining, StateReporting))
	assert.True(t, canTransition(StateLoadingSnapshot, StateFailed))
	assert.True(t, canTransition(StateNormalizing, StateFailed))

	assert.False(t, canTransition(StateIdle, StateWriting), "no skipping")
	assert.False(t, canTransition(StateWriting, StateFailed), "writing failures are not fatal")
	assert.False(t, canTransition(StateDone, StateFailed))
	assert.False(t, canTransition(StateFailed, StateLoadingSnapshot))
}

func TestStateMachine_PanicsOnInvalidTransition(t *testing.T) {
	sm := &stateMachine{}
	assert.Panics(t, func() { sm.enter(StateWriting) })
}

func TestRunError(t *testing.T) {
	cause := errors.New("boom")

	err := NewWriteError(testSource, "001", cause)
	assert.Equal(t, "WRITE_FAILED: boom (source=SIMS, natural_id=001)", err.Error())
	assert.True(t, IsWriteError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsFatal(err))
	assert.ErrorIs(t, err, cause)

	fatal := NewSnapshotError(testSource, cause)
	assert.Equal(t, "SNAPSHOT_LOAD: boom (source=SIMS)", fatal.Error())
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(cause))
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate())

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}

func TestReport_WriteText(t *testing.T) {
	r := Report{RunID: "run-1", Source: testSource, Inserted: 3, Removed: 1, Duration: 1500 * time.Millisecond}
	var buf bytes.Buffer
	assert.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "New users added:         3")
	assert.Contains(t, buf.String(), "Users removed from feed: 1")
	assert.Contains(t, buf.String(), "Duration:                1.5s")
}
