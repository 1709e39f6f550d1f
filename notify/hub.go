// Package notify fans out realtime events to connected staff and public
// clients and sends status emails to submitters.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ChannelAdmin  = "admin"
	ChannelPublic = "public"
)

const (
	EventLinkCreated       = "submission-link-created"
	EventLinkUpdated       = "submission-link-updated"
	EventLinkDeleted       = "submission-link-deleted"
	EventSubmissionCreated = "pending-submission-created"
	EventSubmissionUpdated = "pending-submission-updated"
	EventSubmissionDeleted = "pending-submission-deleted"
	EventStoryCreated      = "story-created"
)

// Notifier publishes named events to a channel. Delivery is best effort.
type Notifier interface {
	Publish(channel, event string, payload any)
}

type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Subscription receives events of one channel until closed.
type Subscription struct {
	C       <-chan Event
	ch      chan Event
	hub     *Hub
	channel string
	once    sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub is an in-process pub/sub keyed by channel name.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	log    logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: 16,
		log:    log,
	}
}

func (h *Hub) Subscribe(channel string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, channel: channel}

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.channel)
		}
	}
	close(sub.ch)
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(channel, event string, payload any) {
	evt := Event{Name: event, Payload: payload, At: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[channel] {
		select {
		case sub.ch <- evt:
		default:
			h.log.WithFields(logrus.Fields{
				"channel": channel,
				"event":   event,
			}).Warn("Dropping realtime event for slow subscriber")
		}
	}
}

func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, string, any) {}
