package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []*JobRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *JobRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewJobRequestEvent(t *testing.T) {
	t.Parallel()

	payload := struct {
		TaskID string `json:"task_id"`
	}{TaskID: "abc"}

	event, err := NewJobRequestEvent("script_run", payload)
	require.NoError(t, err)
	assert.NotEqual(t, "", event.ID.String())
	assert.Equal(t, "script_run", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "abc", decoded.TaskID)
}

func TestEmitEventDeliversToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewJobRequestEvent("script_run", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, event.ID, first.events[0].ID)
}

func TestEmitEventNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())

	event, err := NewJobRequestEvent("script_run", nil)
	require.NoError(t, err)

	// Nothing to deliver to is not an error.
	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}

func TestEmitEventReturnsFirstErrorAfterFullDelivery(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	firstErr := errors.New("first failure")
	failing := &recordingHandler{err: firstErr}
	alsoFailing := &recordingHandler{err: errors.New("second failure")}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(alsoFailing)
	emitter.RegisterHandler(healthy)

	event, err := NewJobRequestEvent("script_run", nil)
	require.NoError(t, err)

	got := emitter.EmitEvent(context.Background(), event)
	assert.Equal(t, firstErr, got)

	// A failing handler must not stop delivery to the rest.
	assert.Len(t, healthy.events, 1)
}
