package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventSignalClosed    EventType = "SIGNAL_CLOSED"
	EventTPHit           EventType = "TP_HIT"
	EventStopLoss        EventType = "STOP_LOSS"
	EventScanStarted     EventType = "SCAN_STARTED"
	EventScanFinished    EventType = "SCAN_FINISHED"
	EventBotStarted      EventType = "BOT_STARTED"
	EventBotStopped      EventType = "BOT_STOPPED"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignalGenerated publishes a new-signal event
func (eb *EventBus) PublishSignalGenerated(id int64, symbol, side string, entry, confidence float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"signal_id":  id,
			"symbol":     symbol,
			"side":       side,
			"entry":      entry,
			"confidence": confidence,
		},
	})
}

// PublishSignalClosed publishes a signal closed event
func (eb *EventBus) PublishSignalClosed(id int64, symbol, side, reason string, exitPrice, pnl float64) {
	eb.Publish(Event{
		Type: EventSignalClosed,
		Data: map[string]interface{}{
			"signal_id":   id,
			"symbol":      symbol,
			"side":        side,
			"reason":      reason,
			"exit_price":  exitPrice,
			"pnl_percent": pnl,
		},
	})
}

// PublishTPHit publishes a take-profit hit event
func (eb *EventBus) PublishTPHit(id int64, symbol string, level int, price, pnl float64) {
	eb.Publish(Event{
		Type: EventTPHit,
		Data: map[string]interface{}{
			"signal_id":   id,
			"symbol":      symbol,
			"level":       level,
			"price":       price,
			"pnl_percent": pnl,
		},
	})
}

// PublishStopLoss publishes a stop-loss event
func (eb *EventBus) PublishStopLoss(id int64, symbol string, price, pnl float64) {
	eb.Publish(Event{
		Type: EventStopLoss,
		Data: map[string]interface{}{
			"signal_id":   id,
			"symbol":      symbol,
			"price":       price,
			"pnl_percent": pnl,
		},
	})
}

// PublishScanFinished publishes a scan summary event
func (eb *EventBus) PublishScanFinished(scanID string, scanned, skipped, generated int, duration time.Duration) {
	eb.Publish(Event{
		Type: EventScanFinished,
		Data: map[string]interface{}{
			"scan_id":     scanID,
			"scanned":     scanned,
			"skipped":     skipped,
			"generated":   generated,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
