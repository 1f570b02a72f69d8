package history

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = (*Log)(nil)
var _ Recorder = (*Tee)(nil)
var _ Recorder = RecorderFunc(nil)

func event(id, trigger string, kwargs map[string]any) *core.TransitionEvent {
	return &core.TransitionEvent{
		ObjectID: id,
		Trigger:  trigger,
		Time:     time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Kwargs:   kwargs,
	}
}

func TestLog_AppendOnlyPerObject(t *testing.T) {
	l := NewLog()

	require.NoError(t, l.RecordTransition(event("v1", "set_idling", nil)))
	require.NoError(t, l.RecordTransition(event("v2", "set_idling", nil)))
	require.NoError(t, l.RecordTransition(event("v1", "set_moving_to", nil)))

	v1 := l.Events("v1")
	require.Len(t, v1, 2)
	assert.Equal(t, "set_idling", v1[0].Trigger)
	assert.Equal(t, "set_moving_to", v1[1].Trigger)
	assert.Len(t, l.Events("v2"), 1)
	assert.Empty(t, l.Events("v3"))

	assert.Equal(t, []string{"v1", "v2"}, l.ObjectIDs())
	assert.Equal(t, 3, l.Len())

	last, ok := l.Last("v1")
	require.True(t, ok)
	assert.Equal(t, "set_moving_to", last.Trigger)
	_, ok = l.Last("v3")
	assert.False(t, ok)
}

func TestLog_StoresCopies(t *testing.T) {
	l := NewLog()
	kwargs := map[string]any{"stop": "arrived"}
	require.NoError(t, l.RecordTransition(event("v1", "set_idling", kwargs)))

	kwargs["stop"] = "changed"
	got := l.Events("v1")
	assert.Equal(t, "arrived", got[0].Kwargs["stop"])

	got[0].Kwargs["stop"] = "mutated"
	assert.Equal(t, "arrived", l.Events("v1")[0].Kwargs["stop"])
}

func TestLog_NilEvent(t *testing.T) {
	assert.Error(t, NewLog().RecordTransition(nil))
}

func TestLog_Concurrent(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = l.RecordTransition(event("v1", "set_idling", nil))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, l.Len())
}

func TestTee_FansOutAndJoinsErrors(t *testing.T) {
	a, b := NewLog(), NewLog()
	errBoom := errors.New("boom")
	failing := RecorderFunc(func(*core.TransitionEvent) error { return errBoom })

	tee := NewTee(a, nil, failing, b)
	err := tee.RecordTransition(event("v1", "set_idling", nil))

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len(), "recorders after a failing one still receive the event")
}

func TestTee_Empty(t *testing.T) {
	assert.NoError(t, NewTee().RecordTransition(event("v1", "set_idling", nil)))
}
