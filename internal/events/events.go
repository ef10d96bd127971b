// Package events fans ride lifecycle events out to in-process subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Type identifies a lifecycle event.
type Type string

const (
	RideAccepted        Type = "ride.accepted"
	StageAdvanced       Type = "ride.stage_advanced"
	CompletionConfirmed Type = "ride.completion_confirmed"
	RideCompleted       Type = "ride.completed"
	RideCancelled       Type = "ride.cancelled"
	NotificationCreated Type = "notification.created"
)

// Notification is the payload of a NotificationCreated event.
type Notification struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Event is a committed state change. Audience lists the user ids allowed to see it.
type Event struct {
	ID                string        `json:"id"`
	Type              Type          `json:"type"`
	AppointmentID     string        `json:"appointment_id,omitempty"`
	RideID            string        `json:"ride_id,omitempty"`
	Status            string        `json:"status,omitempty"`
	AppointmentStatus string        `json:"appointment_status,omitempty"`
	Party             string        `json:"party,omitempty"`
	ActorID           string        `json:"actor_id,omitempty"`
	TotalFare         float64       `json:"total_fare,omitempty"`
	Notification      *Notification `json:"notification,omitempty"`
	Audience          []string      `json:"audience"`
	OccurredAt        time.Time     `json:"occurred_at"`
}

// For reports whether userID is in the audience.
func (e Event) For(userID string) bool {
	for _, id := range e.Audience {
		if id == userID {
			return true
		}
	}
	return false
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(e Event)
}

// Filter selects the events a subscriber receives. A nil filter receives everything.
type Filter func(Event) bool

// ForUser returns a filter matching events whose audience contains userID.
func ForUser(userID string) Filter {
	return func(e Event) bool { return e.For(userID) }
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Bus is an in-process fan-out of events. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	next   uint64
	closed bool
	logger *logrus.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a new event bus.
func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]*subscriber),
		logger: logger,
	}
}

// Publish delivers e to every matching subscriber.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for id, sub := range b.subs {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"event_type": e.Type,
				"ride_id":    e.RideID,
			}).Warn("event dropped for slow subscriber")
		}
	}
}

// Subscribe registers a subscriber. The returned cancel function unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int, filter Filter) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscriber{ch: make(chan Event, buffer), filter: filter}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
