package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

func TestNewLoggerSubscriber(t *testing.T) {
	subscriber := NewLoggerSubscriber(arbor.NewLogger())
	ctx := context.Background()

	err := subscriber(ctx, interfaces.Event{
		Type: interfaces.EventPageProcessed,
		Payload: map[string]interface{}{
			"session_id": "ses_1",
			"page":       2,
			"status":     "ok",
		},
	})
	assert.NoError(t, err)

	err = subscriber(ctx, interfaces.Event{Type: interfaces.EventSessionCleared})
	assert.NoError(t, err)
}

func TestSubscribeLoggerToAllEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := NewService(logger)
	defer eventService.Close()

	require.NoError(t, SubscribeLoggerToAllEvents(eventService, logger))

	for _, eventType := range AllEventTypes {
		err := eventService.PublishSync(context.Background(), interfaces.Event{
			Type:    eventType,
			Payload: map[string]interface{}{"session_id": "ses_1"},
		})
		assert.NoError(t, err, eventType)
	}
}

func TestPublishSync_CallsEveryHandler(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	var calls int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	require.NoError(t, eventService.Subscribe(interfaces.EventIndexBuilt, handler))
	require.NoError(t, SubscribeLoggerToAllEvents(eventService, arbor.NewLogger()))

	require.NoError(t, eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventIndexBuilt}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPublishSync_ReportsHandlerErrors(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	failing := func(ctx context.Context, event interfaces.Event) error {
		return errors.New("boom")
	}
	require.NoError(t, eventService.Subscribe(interfaces.EventIngestStarted, failing))

	err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventIngestStarted})
	assert.Error(t, err)
}

func TestPublish_Async(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	done := make(chan struct{})
	require.NoError(t, eventService.Subscribe(interfaces.EventImageAnalyzed, func(ctx context.Context, event interfaces.Event) error {
		close(done)
		return nil
	}))

	require.NoError(t, eventService.Publish(context.Background(), interfaces.Event{Type: interfaces.EventImageAnalyzed}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestUnsubscribe(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	var calls int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	require.NoError(t, eventService.Subscribe(interfaces.EventIndexBuilt, handler))
	require.NoError(t, eventService.Unsubscribe(interfaces.EventIndexBuilt, handler))
	assert.Error(t, eventService.Unsubscribe(interfaces.EventIndexBuilt, handler))

	require.NoError(t, eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventIndexBuilt}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Error(t, eventService.Subscribe(interfaces.EventIndexBuilt, nil))
}
