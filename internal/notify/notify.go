// Package notify derives notifications from inbound envelopes and tracks
// which chat surface the user is currently viewing so content already on
// screen stays silent.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/models"
	"github.com/worklane/portal-realtime/internal/store"
)

type Center struct {
	identity string
	log      *zap.Logger
	bus      *bus.Bus
	state    *store.ReadState

	mu      sync.Mutex
	focus   string
	pending []models.Notification
}

func NewCenter(identity string, log *zap.Logger, b *bus.Bus, state *store.ReadState) *Center {
	return &Center{
		identity: identity,
		log:      log.Named("notify"),
		bus:      b,
		state:    state,
	}
}

// SetFocus records what is currently being viewed: a channel name, a
// direct-chat counterpart identity, or "" for nothing.
func (c *Center) SetFocus(surface string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = surface
}

func (c *Center) Focus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// RaiseMessage raises a notification for a message unless its surface is the
// one being viewed. The caller has already filtered own echoes and
// irrelevant envelopes.
func (c *Center) RaiseMessage(msg models.Message) {
	surface := msg.RecipientID
	title := "New message in #" + surface
	if msg.IsDirect() {
		surface = msg.SenderID
		title = "New message from " + senderLabel(msg)
	}
	if c.Focus() == surface {
		return
	}
	c.raise(models.Notification{
		Kind:    models.NotificationMessage,
		Title:   title,
		Body:    msg.Content,
		Surface: surface,
		Count:   1,
	})
}

// RaiseMissed raises one aggregated notification for a merged
// missed-message batch instead of one per message.
func (c *Center) RaiseMissed(count int) {
	if count <= 0 {
		return
	}
	c.raise(models.Notification{
		Kind:  models.NotificationMissed,
		Title: fmt.Sprintf("%d new messages while you were away", count),
		Count: count,
	})
}

// RaiseAnnouncement raises a notification for a portal announcement unless it
// was already read in a previous session.
func (c *Center) RaiseAnnouncement(a models.Announcement) {
	read, err := c.state.IsRead(c.identity, store.KindAnnouncement, a.ID)
	if err != nil {
		c.log.Warn("read-state lookup failed", zap.String("announcement", a.ID), zap.Error(err))
	}
	if read {
		return
	}
	c.raise(models.Notification{
		ID:      a.ID,
		Kind:    models.NotificationAnnouncement,
		Title:   a.Title,
		Body:    a.Body,
		Surface: a.ID,
	})
}

func (c *Center) raise(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	c.mu.Lock()
	c.pending = append(c.pending, n)
	c.mu.Unlock()
	c.bus.Publish(bus.TopicNotification, n)
}

// MarkRead persists a notification ID as read for the current identity.
func (c *Center) MarkRead(kind string, ids ...string) error {
	return c.state.MarkRead(c.identity, kind, ids...)
}

// Unread returns raised notifications not yet marked read.
func (c *Center) Unread() []models.Notification {
	c.mu.Lock()
	pending := append([]models.Notification(nil), c.pending...)
	c.mu.Unlock()

	out := make([]models.Notification, 0, len(pending))
	for _, n := range pending {
		read, err := c.state.IsRead(c.identity, n.Kind, n.ID)
		if err != nil {
			c.log.Warn("read-state lookup failed", zap.String("notification", n.ID), zap.Error(err))
		}
		if !read {
			out = append(out, n)
		}
	}
	return out
}

func senderLabel(msg models.Message) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return msg.SenderID
}
