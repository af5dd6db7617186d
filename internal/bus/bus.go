// Package bus is the in-process publish/subscribe fabric between the realtime
// channel and whatever views are mounted. Consumers subscribe per topic
// instead of filtering a generic event stream.
package bus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic identifies one stream of events, one per envelope variant.
type Topic string

const (
	TopicMessage       Topic = "message"
	TopicMissed        Topic = "missed"
	TopicPresence      Topic = "presence"
	TopicReaction      Topic = "reaction"
	TopicMessageUpdate Topic = "message_update"
	TopicTyping        Topic = "typing"
	TopicAnnouncement  Topic = "announcement"
	TopicNotification  Topic = "notification"
	TopicConnState     Topic = "conn_state"
)

const defaultBuffer = 16

// Bus fans events out to per-topic subscribers. Publish never blocks: a
// subscriber that stops draining its channel loses events.
type Bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	closed bool
	subs   map[Topic]map[uuid.UUID]*Subscription
}

// Subscription is one consumer's handle on a topic. Events arrive on C until
// Cancel is called or the bus closes, after which C is closed.
type Subscription struct {
	ID    uuid.UUID
	Topic Topic
	C     chan any

	bus *Bus
}

func New(log *zap.Logger) *Bus {
	return &Bus{
		log:  log.Named("bus"),
		subs: make(map[Topic]map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a consumer on a topic with the default buffer.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	return b.SubscribeBuffered(topic, defaultBuffer)
}

// SubscribeBuffered registers a consumer with an explicit channel buffer.
func (b *Bus) SubscribeBuffered(topic Topic, buffer int) *Subscription {
	sub := &Subscription{
		ID:    uuid.New(),
		Topic: topic,
		C:     make(chan any, buffer),
		bus:   b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uuid.UUID]*Subscription)
	}
	b.subs[topic][sub.ID] = sub
	return sub
}

// Cancel removes the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs, ok := s.bus.subs[s.Topic]
	if !ok {
		return
	}
	if _, ok := subs[s.ID]; !ok {
		return
	}
	delete(subs, s.ID)
	close(s.C)
}

// Publish delivers payload to every subscriber of the topic without blocking.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs[topic] {
		select {
		case sub.C <- payload:
		default:
			b.log.Warn("dropping event for slow subscriber",
				zap.String("topic", string(topic)),
				zap.String("subscription", sub.ID.String()))
		}
	}
}

// Close cancels every subscription. Further publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub.C)
		}
	}
	b.subs = make(map[Topic]map[uuid.UUID]*Subscription)
}
