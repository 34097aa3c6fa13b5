package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event emitted during a compile.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// CompileID is the associated compile run ID, if applicable.
	CompileID string `json:"compile_id,omitempty"`

	// EntityName is the associated entity definition name, if applicable.
	EntityName string `json:"entity_name,omitempty"`

	// InstanceID is the associated entity instance ID, if applicable.
	InstanceID string `json:"instance_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for the compile lifecycle (§4.4, §4.5).
const (
	EventTypeCompileStarted     = "compile.started"
	EventTypeCompileCompleted   = "compile.completed"
	EventTypeCompileFailed      = "compile.failed"
	EventTypePhaseStarted       = "loader.phase_started"
	EventTypePhaseCompleted     = "loader.phase_completed"
	EventTypeInstanceConstructed = "instance.constructed"
	EventTypeIndexCollision     = "index.collision"
	EventTypeFixpointExhausted  = "fixpoint.exhausted"
	EventTypePluginInvoked      = "plugin.invoked"
	EventTypeDiagnostic         = "diagnostic"
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

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
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

// PublishCompileStarted publishes a compile started event.
func (ep *EventPublisher) PublishCompileStarted(compileID, module string) error {
	return ep.Publish(Event{
		Type:      EventTypeCompileStarted,
		Source:    "compiler",
		CompileID: compileID,
		Message:   fmt.Sprintf("compile %s started for module %s", compileID, module),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"module": module,
		},
	})
}

// PublishCompileCompleted publishes a compile completed event.
func (ep *EventPublisher) PublishCompileCompleted(compileID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:      EventTypeCompileCompleted,
		Source:    "compiler",
		CompileID: compileID,
		Message:   fmt.Sprintf("compile %s completed with status: %s", compileID, status),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishCompileFailed publishes a compile failed event.
func (ep *EventPublisher) PublishCompileFailed(compileID, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypeCompileFailed,
		Source:    "compiler",
		CompileID: compileID,
		Message:   fmt.Sprintf("compile %s failed: %s", compileID, reason),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishInstanceConstructed publishes an instance-constructed event
// (§4.2).
func (ep *EventPublisher) PublishInstanceConstructed(compileID, entityName, instanceID string) error {
	return ep.Publish(Event{
		Type:       EventTypeInstanceConstructed,
		Source:     "instance",
		CompileID:  compileID,
		EntityName: entityName,
		InstanceID: instanceID,
		Message:    fmt.Sprintf("constructed %s[%s]", entityName, instanceID),
		Level:      EventLevelInfo,
	})
}

// PublishIndexCollision publishes an index-collision event (§4.2).
func (ep *EventPublisher) PublishIndexCollision(compileID, entityName, key string) error {
	return ep.Publish(Event{
		Type:       EventTypeIndexCollision,
		Source:     "instance",
		CompileID:  compileID,
		EntityName: entityName,
		Message:    fmt.Sprintf("index collision on %s with key %q", entityName, key),
		Level:      EventLevelError,
		Data: map[string]interface{}{
			"key": key,
		},
	})
}

// PublishFixpointExhausted publishes a fixpoint-exhausted event (§4.4).
func (ep *EventPublisher) PublishFixpointExhausted(compileID string, iterations int) error {
	return ep.Publish(Event{
		Type:      EventTypeFixpointExhausted,
		Source:    "scheduler",
		CompileID: compileID,
		Message:   fmt.Sprintf("compile %s did not converge after %d iterations", compileID, iterations),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"iterations": iterations,
		},
	})
}

// Subscribe adds a new event subscriber.
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

func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}
		case <-ep.ctx.Done():
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Flush is driven by processEvents draining the buffer.
		case <-ep.ctx.Done():
			return
		}
	}
}

func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
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

// FilterByCompileID creates a filter that only allows events for a specific compile.
func FilterByCompileID(compileID string) EventFilter {
	return func(event Event) bool {
		return event.CompileID == compileID
	}
}
