// Package realtime owns the portal's duplex connection: one WebSocket per
// logged-in identity. It normalizes inbound envelopes into typed bus events
// and offers a fire-and-forget outbound send. There is no send queue: a send
// while disconnected is logged and dropped.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/chatlog"
	"github.com/worklane/portal-realtime/internal/models"
	"github.com/worklane/portal-realtime/internal/notify"
	"github.com/worklane/portal-realtime/internal/presence"
)

var (
	// ErrNotConnected is returned by Send while the channel is down.
	ErrNotConnected = errors.New("realtime: not connected")
	// ErrReconnectExhausted is surfaced once the backoff budget is spent.
	ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")
)

type Options struct {
	Identity             string
	BaseURL              string
	HeartbeatInterval    time.Duration
	BackoffBase          time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
}

// Membership answers whether the current identity belongs to a channel, and
// tracks join/leave envelopes.
type Membership interface {
	Member(channel string) bool
	Join(channel string)
	Leave(channel string)
}

// StatusFetcher is the HTTP side channel that seeds the presence map after
// connect.
type StatusFetcher interface {
	Statuses(ctx context.Context) ([]models.UserStatus, error)
}

// Deps are the collaborators the channel mutates and publishes through.
type Deps struct {
	Log        *zap.Logger
	Bus        *bus.Bus
	Presence   *presence.Map
	Messages   *chatlog.Log
	Notifier   *notify.Center
	Membership Membership
	Statuses   StatusFetcher
}

type Channel struct {
	opts   Options
	log    *zap.Logger
	bus    *bus.Bus
	pres   *presence.Map
	msgs   *chatlog.Log
	notify *notify.Center
	member Membership
	status StatusFetcher
	dialer *websocket.Dialer

	// mu guards the connection lifecycle. Envelope handlers run on the read
	// loop goroutine only; the message log and presence map carry their own
	// locks for reads from other goroutines.
	mu             sync.Mutex
	conn           *websocket.Conn
	closing        bool
	attempts       int
	reconnectTimer *time.Timer
	heartbeatDone  chan struct{}

	// wmu serializes writes; gorilla connections allow one writer at a time.
	wmu sync.Mutex
}

func NewChannel(opts Options, deps Deps) *Channel {
	return &Channel{
		opts:   opts,
		log:    deps.Log.Named("realtime").With(zap.String("identity", opts.Identity)),
		bus:    deps.Bus,
		pres:   deps.Presence,
		msgs:   deps.Messages,
		notify: deps.Notifier,
		member: deps.Membership,
		status: deps.Statuses,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
	}
}

// Connect opens the realtime connection for this identity. Calling it while
// already connected is a no-op, so at most one connection exists per identity.
// A successful open resets the reconnect attempt counter.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.mu.Unlock()

	endpoint, err := EndpointURL(c.opts.BaseURL, c.opts.Identity)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil || c.closing {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	done := make(chan struct{})
	c.heartbeatDone = done
	c.mu.Unlock()

	c.log.Info("realtime channel connected", zap.String("endpoint", endpoint))
	c.pres.Set(c.opts.Identity, models.StatusOnline)
	c.bus.Publish(bus.TopicConnState, models.ConnState{State: models.StateConnected})

	go c.readLoop(conn)
	go c.heartbeat(done)
	c.seedPresence(ctx)
	return nil
}

// Connected reports whether the channel currently holds an open connection.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send serializes and transmits an outbound envelope immediately. While
// disconnected the envelope is dropped with a warning; the caller already
// applied its optimistic local update.
func (c *Channel) Send(envelope any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		sendsDropped.Inc()
		c.log.Warn("dropping send while disconnected", zap.Any("envelope", envelope))
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteJSON(envelope); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

// Close tears the channel down deliberately: no reconnect, no drain of
// pending sends.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closing = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatDone != nil {
		close(c.heartbeatDone)
		c.heartbeatDone = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.bus.Publish(bus.TopicConnState, models.ConnState{State: models.StateDisconnected})
	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"), deadline)
	return conn.Close()
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleFailure(err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Channel) heartbeat(done chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.Send(models.Liveness{Type: models.TypePing}); err != nil {
				return
			}
		}
	}
}

// seedPresence requests a full snapshot over the HTTP side channel. Failure
// is not fatal: the map fills in from status_update envelopes.
func (c *Channel) seedPresence(ctx context.Context) {
	statuses, err := c.status.Statuses(ctx)
	if err != nil {
		c.log.Warn("presence snapshot fetch failed", zap.Error(err))
		return
	}
	c.pres.ReplaceFromList(statuses)
	c.pres.Set(c.opts.Identity, models.StatusOnline)
	c.bus.Publish(bus.TopicPresence, c.pres.Snapshot())
}

// handleFailure runs on every unexpected close or failed reconnect dial. The
// Nth retry waits base<<(N-1); once the attempt budget is spent the channel
// surfaces a terminal failed state instead of retrying.
func (c *Channel) handleFailure(err error) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.heartbeatDone != nil {
		close(c.heartbeatDone)
		c.heartbeatDone = nil
	}
	attempt := c.attempts
	if attempt >= c.opts.MaxReconnectAttempts {
		c.mu.Unlock()
		c.log.Error("reconnect attempts exhausted", zap.Int("attempts", attempt), zap.Error(err))
		c.bus.Publish(bus.TopicConnState, models.ConnState{
			State:   models.StateFailed,
			Attempt: attempt,
			Err:     ErrReconnectExhausted.Error(),
		})
		return
	}
	wait := c.opts.BackoffBase << attempt
	c.attempts = attempt + 1
	c.reconnectTimer = time.AfterFunc(wait, c.reconnect)
	c.mu.Unlock()

	reconnects.Inc()
	c.log.Warn("connection lost, reconnect scheduled",
		zap.Int("attempt", attempt+1),
		zap.Duration("wait", wait),
		zap.Error(err))
	c.bus.Publish(bus.TopicConnState, models.ConnState{
		State:   models.StateReconnecting,
		Attempt: attempt + 1,
		Wait:    wait,
		Err:     err.Error(),
	})
}

func (c *Channel) reconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandshakeTimeout)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		c.handleFailure(err)
	}
}
