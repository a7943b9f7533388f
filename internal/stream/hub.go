// Package stream provides fan-out distribution of discipline events.
package stream

import (
	"sync"
	"time"

	"tradegate/internal/models"
)

// EventKind identifies the type of a discipline event.
type EventKind string

const (
	EventTriggerWarning   EventKind = "trigger_warning"
	EventSessionStarted   EventKind = "session_started"
	EventSessionCompleted EventKind = "session_completed"
	EventSessionSkipped   EventKind = "session_skipped"
	EventApprovalIssued   EventKind = "approval_issued"
	EventApprovalConsumed EventKind = "approval_consumed"
	EventApprovalExpired  EventKind = "approval_expired"
	EventScoreAdjusted    EventKind = "score_adjusted"
)

// Event represents one discipline event. Only the fields relevant to the
// kind are set. Informational trigger warnings carry every fired trigger,
// not just the one that became a session's reason.
type Event struct {
	Kind      EventKind
	UserID    string
	Trigger   *models.Trigger
	Session   *models.CooldownSession
	Approval  *models.TradeApproval
	Score     *models.ScoreEvent
	Timestamp time.Time
}

// HubConfig holds configuration for the event hub.
type HubConfig struct {
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
	// SlowConsumerDropThreshold is the number of consecutive drops before
	// a subscriber is considered slow.
	SlowConsumerDropThreshold int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SubscriberBufferSize:      100,
		SlowConsumerDropThreshold: 10,
	}
}

// Hub distributes discipline events to multiple subscribers via channels.
// Publishing never blocks a core operation: events for slow consumers are
// dropped and counted.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool

	eventsPublished uint64
	eventsDropped   uint64
}

// Subscriber represents a channel subscriber with metadata.
type Subscriber struct {
	ID           string
	Channel      chan Event
	DroppedCount int
	CreatedAt    time.Time
}

// NewHub creates a new event hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new event hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a subscriber and returns its event channel.
func (h *Hub) Subscribe(id string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:        id,
		Channel:   make(chan Event, h.config.SubscriberBufferSize),
		CreatedAt: time.Now(),
	}
	h.subscribers[id] = sub
	return sub.Channel
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		close(sub.Channel)
		delete(h.subscribers, id)
	}
}

// Publish sends an event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.eventsPublished++

	for _, sub := range h.subscribers {
		select {
		case sub.Channel <- event:
			sub.DroppedCount = 0
		default:
			sub.DroppedCount++
			h.eventsDropped++
		}
	}
}

// SlowSubscribers returns IDs of subscribers past the drop threshold.
func (h *Hub) SlowSubscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var slow []string
	for id, sub := range h.subscribers {
		if sub.DroppedCount >= h.config.SlowConsumerDropThreshold {
			slow = append(slow, id)
		}
	}
	return slow
}

// Stats returns publish and drop counts.
func (h *Hub) Stats() (published, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.eventsPublished, h.eventsDropped
}

// Close closes every subscriber channel. Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.Channel)
		delete(h.subscribers, id)
	}
}
