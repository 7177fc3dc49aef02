package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// AllEventTypes lists every event the ingest pipeline and session manager publish
var AllEventTypes = []interfaces.EventType{
	interfaces.EventIngestStarted,
	interfaces.EventPageProcessed,
	interfaces.EventImageAnalyzed,
	interfaces.EventIngestCompleted,
	interfaces.EventIndexBuilt,
	interfaces.EventSessionCleared,
}

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["session_id"].(string); ok {
				logEvent = logEvent.Str("session_id", id)
			}
			if page, ok := payload["page"].(int); ok {
				logEvent = logEvent.Int("page", page)
			}
			if status, ok := payload["status"].(string); ok {
				logEvent = logEvent.Str("status", status)
			}
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(AllEventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
