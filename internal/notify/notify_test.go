package notify_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/models"
	"github.com/worklane/portal-realtime/internal/notify"
	"github.com/worklane/portal-realtime/internal/store"
)

func newCenter(t *testing.T) (*notify.Center, *bus.Bus, *store.ReadState) {
	t.Helper()
	log := zaptest.NewLogger(t)
	state, err := store.Open(filepath.Join(t.TempDir(), "readstate"), log)
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	b := bus.New(log)
	return notify.NewCenter("u1@x", log, b, state), b, state
}

func channelMsg(sender, channel, content string) models.Message {
	return models.Message{
		ID:          "m-" + content,
		SenderID:    sender,
		RecipientID: channel,
		Content:     content,
		Timestamp:   time.Now().UTC(),
	}
}

func TestRaiseMessage(t *testing.T) {
	t.Parallel()

	t.Run("channel message references the channel", func(t *testing.T) {
		c, b, _ := newCenter(t)
		sub := b.Subscribe(bus.TopicNotification)

		c.RaiseMessage(channelMsg("u2@x", "general", "hi"))

		n := (<-sub.C).(models.Notification)
		assert.Equal(t, models.NotificationMessage, n.Kind)
		assert.Contains(t, n.Title, "general")
		assert.Equal(t, "general", n.Surface)
	})

	t.Run("direct message references the sender", func(t *testing.T) {
		c, b, _ := newCenter(t)
		sub := b.Subscribe(bus.TopicNotification)

		msg := channelMsg("u2@x", "u1@x", "psst")
		msg.SenderName = "Bea"
		c.RaiseMessage(msg)

		n := (<-sub.C).(models.Notification)
		assert.Contains(t, n.Title, "Bea")
		assert.Equal(t, "u2@x", n.Surface)
	})

	t.Run("focused surface stays silent", func(t *testing.T) {
		c, b, _ := newCenter(t)
		sub := b.Subscribe(bus.TopicNotification)

		c.SetFocus("general")
		c.RaiseMessage(channelMsg("u2@x", "general", "hi"))

		select {
		case n := <-sub.C:
			t.Fatalf("unexpected notification %v", n)
		default:
		}
		assert.Empty(t, c.Unread())
	})

	t.Run("focus on another surface does not suppress", func(t *testing.T) {
		c, _, _ := newCenter(t)
		c.SetFocus("random")
		c.RaiseMessage(channelMsg("u2@x", "general", "hi"))
		assert.Len(t, c.Unread(), 1)
	})
}

func TestRaiseMissedAggregates(t *testing.T) {
	t.Parallel()
	c, b, _ := newCenter(t)
	sub := b.Subscribe(bus.TopicNotification)

	c.RaiseMissed(0)
	c.RaiseMissed(7)

	n := (<-sub.C).(models.Notification)
	assert.Equal(t, models.NotificationMissed, n.Kind)
	assert.Equal(t, 7, n.Count)
	assert.Contains(t, n.Title, "7")

	select {
	case extra := <-sub.C:
		t.Fatalf("expected a single aggregated notification, got %v", extra)
	default:
	}
}

func TestMarkReadFilters(t *testing.T) {
	t.Parallel()
	c, _, _ := newCenter(t)

	c.RaiseMessage(channelMsg("u2@x", "general", "one"))
	c.RaiseMessage(channelMsg("u2@x", "general", "two"))

	unread := c.Unread()
	require.Len(t, unread, 2)

	require.NoError(t, c.MarkRead(unread[0].Kind, unread[0].ID))
	assert.Len(t, c.Unread(), 1)
}

func TestAnnouncementReadStateSurvivesSessions(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t)
	state, err := store.Open(filepath.Join(t.TempDir(), "readstate"), log)
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	a := models.Announcement{ID: "a1", Title: "Maintenance window", Body: "Friday 18:00"}

	first := notify.NewCenter("u1@x", log, bus.New(log), state)
	first.RaiseAnnouncement(a)
	require.Len(t, first.Unread(), 1)
	require.NoError(t, first.MarkRead(models.NotificationAnnouncement, "a1"))

	// a fresh session against the same store must not re-raise it
	second := notify.NewCenter("u1@x", log, bus.New(log), state)
	second.RaiseAnnouncement(a)
	assert.Empty(t, second.Unread())
}
