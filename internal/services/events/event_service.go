package events

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// queueSize bounds the backlog of one subscriber; publishers block when it is full
const queueSize = 64

// delivery is one event on its way to one subscriber. reply is nil for Publish.
type delivery struct {
	ctx   context.Context
	event interfaces.Event
	reply chan<- error
}

// subscription delivers events to its handler in publish order on its own goroutine
type subscription struct {
	eventType interfaces.EventType
	handler   interfaces.EventHandler
	queue     chan delivery
	done      chan struct{}
}

func (sub *subscription) run(logger arbor.ILogger) {
	defer close(sub.done)
	for d := range sub.queue {
		err := sub.handler(d.ctx, d.event)
		if err != nil {
			logger.Warn().Err(err).Str("event_type", string(d.event.Type)).Msg("Event handler failed")
		}
		if d.reply != nil {
			d.reply <- err
		}
	}
}

// Service is the in-process bus for ingest progress and session events.
// Every subscriber sees events in the order they were published: page_processed
// for page 3 never overtakes page 2, and ingest_completed comes last.
type Service struct {
	mu     sync.RWMutex
	subs   map[interfaces.EventType][]*subscription
	known  map[interfaces.EventType]bool
	closed bool
	logger arbor.ILogger
}

// NewService creates the event bus for the pipeline's event types
func NewService(logger arbor.ILogger) interfaces.EventService {
	known := make(map[interfaces.EventType]bool, len(AllEventTypes))
	for _, t := range AllEventTypes {
		known[t] = true
	}
	return &Service{
		subs:   make(map[interfaces.EventType][]*subscription),
		known:  known,
		logger: logger,
	}
}

// Subscribe starts delivering eventType to handler. Unknown event types are rejected.
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if !s.known[eventType] {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("event service is closed")
	}

	sub := &subscription{
		eventType: eventType,
		handler:   handler,
		queue:     make(chan delivery, queueSize),
		done:      make(chan struct{}),
	}
	go sub.run(s.logger)
	s.subs[eventType] = append(s.subs[eventType], sub)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subs[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// Unsubscribe removes handler, matched by function identity. Events already queued for it are still delivered.
func (s *Service) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := reflect.ValueOf(handler).Pointer()
	subs := s.subs[eventType]
	for i, sub := range subs {
		if reflect.ValueOf(sub.handler).Pointer() != target {
			continue
		}
		s.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
		close(sub.queue)
		s.logger.Debug().Str("event_type", string(eventType)).Msg("Event handler unsubscribed")
		return nil
	}
	return fmt.Errorf("handler not found for event type: %s", eventType)
}

// Publish queues event for every subscriber and returns without waiting for handlers.
// Handlers run detached from ctx cancellation so a finished request does not cut them short.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	_, err := s.enqueue(context.WithoutCancel(ctx), event, nil)
	return err
}

// PublishSync queues event and waits until every subscriber has handled it,
// returning the joined handler errors
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	replies := make(chan error, queueSize)
	n, err := s.enqueue(ctx, event, replies)
	if err != nil {
		return err
	}

	var errs []error
	for i := 0; i < n; i++ {
		select {
		case err := <-replies:
			if err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d event handlers failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// enqueue hands event to each subscriber's queue, returning how many received it
func (s *Service) enqueue(ctx context.Context, event interfaces.Event, reply chan<- error) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("event service is closed")
	}

	subs := s.subs[event.Type]
	if reply != nil && len(subs) > cap(reply) {
		return 0, fmt.Errorf("too many subscribers for %s: %d", event.Type, len(subs))
	}
	for i, sub := range subs {
		select {
		case sub.queue <- delivery{ctx: ctx, event: event, reply: reply}:
		case <-ctx.Done():
			return i, ctx.Err()
		}
	}
	return len(subs), nil
}

// Close stops accepting events and waits for queued deliveries to finish
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var pending []*subscription
	for _, subs := range s.subs {
		for _, sub := range subs {
			close(sub.queue)
			pending = append(pending, sub)
		}
	}
	s.subs = make(map[interfaces.EventType][]*subscription)
	s.mu.Unlock()

	for _, sub := range pending {
		<-sub.done
	}
	s.logger.Info().Int("subscribers", len(pending)).Msg("Event service closed")
	return nil
}
