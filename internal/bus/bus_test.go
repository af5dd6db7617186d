package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/worklane/portal-realtime/internal/bus"
)

func TestPublishPerTopic(t *testing.T) {
	t.Parallel()
	b := bus.New(zaptest.NewLogger(t))

	msgs := b.Subscribe(bus.TopicMessage)
	pres := b.Subscribe(bus.TopicPresence)

	b.Publish(bus.TopicMessage, "hello")

	select {
	case got := <-msgs.C:
		assert.Equal(t, "hello", got)
	default:
		t.Fatal("message subscriber got nothing")
	}
	select {
	case got := <-pres.C:
		t.Fatalf("presence subscriber got unrelated event %v", got)
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	t.Parallel()
	b := bus.New(zaptest.NewLogger(t))

	sub := b.Subscribe(bus.TopicMessage)
	sub.Cancel()
	sub.Cancel() // idempotent

	_, open := <-sub.C
	assert.False(t, open)

	// publishing after cancel must not panic
	b.Publish(bus.TopicMessage, "late")
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()
	b := bus.New(zaptest.NewLogger(t))

	sub := b.SubscribeBuffered(bus.TopicMessage, 1)
	b.Publish(bus.TopicMessage, 1)
	b.Publish(bus.TopicMessage, 2) // dropped, not blocked

	got := <-sub.C
	assert.Equal(t, 1, got)
	select {
	case extra := <-sub.C:
		t.Fatalf("expected overflow event to be dropped, got %v", extra)
	default:
	}
}

func TestClose(t *testing.T) {
	t.Parallel()
	b := bus.New(zaptest.NewLogger(t))

	sub := b.Subscribe(bus.TopicConnState)
	b.Close()

	_, open := <-sub.C
	require.False(t, open)

	// subscribing after close yields a closed channel
	late := b.Subscribe(bus.TopicConnState)
	_, open = <-late.C
	assert.False(t, open)

	b.Publish(bus.TopicConnState, "ignored")
}
