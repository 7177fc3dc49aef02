package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

func TestPublish_PreservesOrderPerSubscriber(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	var mu sync.Mutex
	var pages []int
	record := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		pages = append(pages, event.Payload.(map[string]interface{})["page"].(int))
		return nil
	}
	require.NoError(t, eventService.Subscribe(interfaces.EventPageProcessed, record))

	ctx := context.Background()
	for page := 1; page <= 200; page++ {
		require.NoError(t, eventService.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventPageProcessed,
			Payload: map[string]interface{}{"page": page},
		}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pages) == 200
	}, 2*time.Second, 10*time.Millisecond)

	for i, page := range pages {
		assert.Equal(t, i+1, page)
	}
}

func TestPublish_SurvivesCancelledRequest(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	got := make(chan error, 1)
	require.NoError(t, eventService.Subscribe(interfaces.EventIndexBuilt, func(ctx context.Context, event interfaces.Event) error {
		got <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventIndexBuilt}))
	cancel()

	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestSubscribe_RejectsUnknownEventType(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	err := eventService.Subscribe("crawl_started", func(ctx context.Context, event interfaces.Event) error { return nil })
	assert.Error(t, err)
}

func TestPublishSync_JoinsHandlerErrors(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	boom := errors.New("boom")
	require.NoError(t, eventService.Subscribe(interfaces.EventIngestCompleted, func(ctx context.Context, event interfaces.Event) error { return boom }))
	require.NoError(t, eventService.Subscribe(interfaces.EventIngestCompleted, func(ctx context.Context, event interfaces.Event) error { return nil }))

	err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventIngestCompleted})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestClose_DrainsQueuedEvents(t *testing.T) {
	eventService := NewService(arbor.NewLogger())

	var mu sync.Mutex
	handled := 0
	require.NoError(t, eventService.Subscribe(interfaces.EventImageAnalyzed, func(ctx context.Context, event interfaces.Event) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, eventService.Publish(context.Background(), interfaces.Event{Type: interfaces.EventImageAnalyzed}))
	}
	require.NoError(t, eventService.Close())

	mu.Lock()
	assert.Equal(t, 10, handled)
	mu.Unlock()

	assert.Error(t, eventService.Publish(context.Background(), interfaces.Event{Type: interfaces.EventImageAnalyzed}))
	assert.Error(t, eventService.Subscribe(interfaces.EventImageAnalyzed, func(ctx context.Context, event interfaces.Event) error { return nil }))
	assert.NoError(t, eventService.Close())
}
