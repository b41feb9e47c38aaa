package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event emitted during estimation.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// EstimateID is the associated estimate, if applicable.
	EstimateID string `json:"estimate_id,omitempty"`

	// Problem is the associated problem name, if applicable.
	Problem string `json:"problem,omitempty"`

	// Heuristic is the associated heuristic kind, if applicable.
	Heuristic string `json:"heuristic,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeEstimateStarted     = "estimate.started"
	EventTypeEstimateCompleted   = "estimate.completed"
	EventTypeEstimateUnreachable = "estimate.unreachable"
	EventTypeGraphLeveled        = "graph.leveled"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
//
// In synchronous mode subscribers run on the publishing goroutine. In
// asynchronous mode events are buffered and delivered in order by a single
// background goroutine.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishEstimateStarted publishes an estimate started event.
func (ep *EventPublisher) PublishEstimateStarted(estimateID, problem, heuristic string) error {
	return ep.Publish(Event{
		Type:       EventTypeEstimateStarted,
		Source:     "estimator",
		EstimateID: estimateID,
		Problem:    problem,
		Heuristic:  heuristic,
		Message:    fmt.Sprintf("Estimate %s started: %s on %s", estimateID, heuristic, problem),
		Level:      EventLevelInfo,
	})
}

// PublishEstimateCompleted publishes an estimate completed event.
func (ep *EventPublisher) PublishEstimateCompleted(estimateID, problem, heuristic string, value, levels int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:       EventTypeEstimateCompleted,
		Source:     "estimator",
		EstimateID: estimateID,
		Problem:    problem,
		Heuristic:  heuristic,
		Message:    fmt.Sprintf("Estimate %s completed: %s = %d", estimateID, heuristic, value),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"value":    value,
			"levels":   levels,
			"duration": duration.Seconds(),
		},
	})
}

// PublishEstimateUnreachable publishes an event for a goal that cannot be reached.
func (ep *EventPublisher) PublishEstimateUnreachable(estimateID, problem, heuristic string, levels int) error {
	return ep.Publish(Event{
		Type:       EventTypeEstimateUnreachable,
		Source:     "estimator",
		EstimateID: estimateID,
		Problem:    problem,
		Heuristic:  heuristic,
		Message:    fmt.Sprintf("Estimate %s: goal unreachable after %d levels", estimateID, levels),
		Level:      EventLevelWarning,
		Data: map[string]interface{}{
			"levels": levels,
		},
	})
}

// PublishGraphLeveled publishes an event for a graph reaching its fixed point.
func (ep *EventPublisher) PublishGraphLeveled(estimateID, problem string, level int) error {
	return ep.Publish(Event{
		Type:       EventTypeGraphLeveled,
		Source:     "planning",
		EstimateID: estimateID,
		Problem:    problem,
		Message:    fmt.Sprintf("Graph leveled off at level %d", level),
		Level:      EventLevelInfo,
		Data: map[string]interface{}{
			"level": level,
		},
	})
}

// PublishError publishes an error event.
func (ep *EventPublisher) PublishError(estimateID, problem, class, code, reason string) error {
	return ep.Publish(Event{
		Type:       EventTypeError,
		Source:     "estimator",
		EstimateID: estimateID,
		Problem:    problem,
		Message:    reason,
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"class": class,
			"code":  code,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter accepts every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents delivers buffered events in batches.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)
	flush := func() {
		for _, event := range batch {
			ep.deliverEvent(event)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			if len(batch) >= ep.config.MaxBatchSize || len(ep.buffer) == 0 {
				flush()
			}

		case <-ep.ctx.Done():
			// Drain whatever is still buffered
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all matching subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher, delivering buffered events first.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByEstimateID creates a filter that only allows events for one estimate.
func FilterByEstimateID(estimateID string) EventFilter {
	return func(event Event) bool {
		return event.EstimateID == estimateID
	}
}
