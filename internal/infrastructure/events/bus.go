// Package events provides a bounded publish-subscribe event bus.
package events

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gridmind/gridmind-go/internal/shared"
)

// Handler is a function that handles events.
type Handler func(event shared.Event)

// Bus is a publish-subscribe event system over buffered Go channels.
// Publication never blocks the producer: a send that cannot complete within
// the per-send timeout is dropped and counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[shared.EventType][]chan shared.Event
	handlers    map[shared.EventType][]Handler
	bufferSize  int
	sendTimeout time.Duration
	closed      bool

	dropped atomic.Int64
	logger  *log.Logger
}

// Option configures the Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// WithSendTimeout bounds how long a publish waits on a full subscriber.
func WithSendTimeout(timeout time.Duration) Option {
	return func(b *Bus) {
		b.sendTimeout = timeout
	}
}

// WithLogger sets the logger used for dropped-event reports.
func WithLogger(logger *log.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates a new Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[shared.EventType][]chan shared.Event),
		handlers:    make(map[shared.EventType][]Handler),
		bufferSize:  100,
		sendTimeout: 50 * time.Millisecond,
		logger:      log.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe creates a channel receiving events of the given type.
func (b *Bus) Subscribe(eventType shared.EventType) <-chan shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan shared.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a channel receiving all events.
func (b *Bus) SubscribeAll() <-chan shared.Event {
	return b.Subscribe("*")
}

// On registers a handler for events of the given type. Handlers run on
// their own goroutine per event.
func (b *Bus) On(eventType shared.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish emits an event to all subscribers and handlers. At-least-once
// toward responsive subscribers; slow subscribers lose events after the
// send timeout.
func (b *Bus) Publish(event shared.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}
	if event.Severity == "" {
		event.Severity = shared.SeverityInfo
	}
	event.Payload = shared.ClonePayload(event.Payload)

	for _, ch := range b.subscribers[event.Type] {
		b.send(ch, event)
	}
	for _, ch := range b.subscribers["*"] {
		b.send(ch, event)
	}

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.handlers["*"] {
		go handler(event)
	}
}

func (b *Bus) send(ch chan shared.Event, event shared.Event) {
	select {
	case ch <- event:
		return
	default:
	}

	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()

	select {
	case ch <- event:
	case <-timer.C:
		b.dropped.Add(1)
		b.logger.Printf("events: dropped %s for slow subscriber (total dropped: %d)",
			event.Type, b.dropped.Load())
	}
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}

	b.subscribers = make(map[shared.EventType][]chan shared.Event)
	b.handlers = make(map[shared.EventType][]Handler)
}

// ============================================================================
// Helper Emitters
// ============================================================================

// PublishLearningProgress emits a learning progress event.
func (b *Bus) PublishLearningProgress(gamesProcessed int, winRate float64, bufferLen int) {
	b.Publish(shared.Event{
		Type: shared.EventLearningProgress,
		Payload: map[string]interface{}{
			"gamesProcessed": gamesProcessed,
			"winRate":        winRate,
			"bufferLen":      bufferLen,
		},
	})
}

// PublishModelUpdated emits a model updated event.
func (b *Bus) PublishModelUpdated(version int64, stabilityScore, trainingLoss float64) {
	b.Publish(shared.Event{
		Type: shared.EventModelUpdated,
		Payload: map[string]interface{}{
			"version":        version,
			"stabilityScore": stabilityScore,
			"trainingLoss":   trainingLoss,
		},
	})
}

// PublishModelUpdateRejected emits a rejection event with the reasons.
func (b *Bus) PublishModelUpdateRejected(reason string, stabilityScore float64, riskFactors []string) {
	b.Publish(shared.Event{
		Type:     shared.EventModelUpdateRejected,
		Severity: shared.SeverityWarning,
		Payload: map[string]interface{}{
			"reason":         reason,
			"stabilityScore": stabilityScore,
			"riskFactors":    riskFactors,
		},
	})
}

// PublishStabilityReport emits a stability report event.
func (b *Bus) PublishStabilityReport(isStable bool, score float64, trend string, riskFactors, recommendations []string) {
	severity := shared.SeverityInfo
	if !isStable {
		severity = shared.SeverityWarning
	}
	b.Publish(shared.Event{
		Type:     shared.EventStabilityReport,
		Severity: severity,
		Payload: map[string]interface{}{
			"isStable":        isStable,
			"stabilityScore":  score,
			"trend":           trend,
			"riskFactors":     riskFactors,
			"recommendations": recommendations,
		},
	})
}

// PublishPatternInsights emits the analyzer's current top insights.
func (b *Bus) PublishPatternInsights(insights interface{}) {
	b.Publish(shared.Event{
		Type: shared.EventPatternInsights,
		Payload: map[string]interface{}{
			"insights": insights,
		},
	})
}
