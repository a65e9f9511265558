package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	types map[string]bool
	seen  []Event
}

func (h *recordingHandler) Handle(event Event) error {
	h.seen = append(h.seen, event)
	return nil
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.types[eventType]
}

func TestInMemoryEventStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryEventStore()
	runID := NewRunID()

	require.NoError(t, store.AppendEvent(runID, NewEvent(LoadStartedEvent, runID, LoadStarted{Strategy: "next"})))
	require.NoError(t, store.AppendEvent(runID, NewEvent(LoadCompletedEvent, runID, LoadCompleted{Columns: 2})))

	got, err := store.ReadEvents(runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, LoadStartedEvent, got[0].Type())
	assert.Equal(t, LoadCompletedEvent, got[1].Type())

	other, err := store.ReadEvents(NewRunID())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInMemoryEventStore_SubscribeFiltersByType(t *testing.T) {
	store := NewInMemoryEventStore()
	handler := &recordingHandler{types: map[string]bool{ColumnAssembledEvent: true}}
	require.NoError(t, store.Subscribe([]string{ColumnAssembledEvent}, handler))

	runID := NewRunID()
	require.NoError(t, store.AppendEvent(runID, NewEvent(LoadStartedEvent, runID, LoadStarted{})))
	require.NoError(t, store.AppendEvent(runID, NewEvent(ColumnAssembledEvent, runID, ColumnAssembled{Column: "eps"})))

	require.Len(t, handler.seen, 1)
	data, ok := handler.seen[0].Data().(ColumnAssembled)
	require.True(t, ok)
	assert.Equal(t, "eps", data.Column)
}
