// Package session is the per-login service holding everything the old portal
// kept in a global provider: the realtime channel, presence map, message log,
// notification center and channel membership. One Session is constructed at
// login and torn down at logout; views receive it by injection.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/chatlog"
	"github.com/worklane/portal-realtime/internal/client"
	"github.com/worklane/portal-realtime/internal/config"
	"github.com/worklane/portal-realtime/internal/models"
	"github.com/worklane/portal-realtime/internal/notify"
	"github.com/worklane/portal-realtime/internal/presence"
	"github.com/worklane/portal-realtime/internal/realtime"
	"github.com/worklane/portal-realtime/internal/store"
)

// OutgoingMessage is what a chat surface hands to SendChat.
type OutgoingMessage struct {
	RecipientID string `validate:"required"`
	Content     string `validate:"required"`
	ReplyTo     string
	File        *models.FileInfo
}

type Session struct {
	identity string
	cfg      *config.Config
	log      *zap.Logger
	bus      *bus.Bus
	api      client.PortalAPI
	pres     *presence.Map
	msgs     *chatlog.Log
	notifier *notify.Center
	channel  *realtime.Channel
	validate *validator.Validate

	mu       sync.RWMutex
	channels map[string]struct{}
}

func New(conf *config.Config, log *zap.Logger, b *bus.Bus, state *store.ReadState, api client.PortalAPI) *Session {
	identity := conf.Portal.Identity
	s := &Session{
		identity: identity,
		cfg:      conf,
		log:      log.Named("session").With(zap.String("identity", identity)),
		bus:      b,
		api:      api,
		pres:     presence.NewMap(),
		msgs:     chatlog.New(),
		notifier: notify.NewCenter(identity, log, b, state),
		validate: validator.New(),
		channels: make(map[string]struct{}),
	}
	s.channel = realtime.NewChannel(realtime.Options{
		Identity:             identity,
		BaseURL:              conf.Portal.BaseURL,
		HeartbeatInterval:    conf.Realtime.HeartbeatInterval,
		BackoffBase:          conf.Realtime.BackoffBase,
		MaxReconnectAttempts: conf.Realtime.MaxReconnectAttempts,
		HandshakeTimeout:     conf.Realtime.HandshakeTimeout,
	}, realtime.Deps{
		Log:        log,
		Bus:        b,
		Presence:   s.pres,
		Messages:   s.msgs,
		Notifier:   s.notifier,
		Membership: s,
		Statuses:   api,
	})
	return s
}

func (s *Session) Identity() string { return s.identity }

// Login fetches channel membership, opens the realtime channel and merges
// fresh history. History failures are logged, not fatal: the log also fills
// in from missed_messages.
func (s *Session) Login(ctx context.Context) error {
	channels, err := s.api.Channels(ctx, s.identity)
	if err != nil {
		return fmt.Errorf("fetch channel membership: %w", err)
	}
	s.mu.Lock()
	s.channels = make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}
	s.mu.Unlock()

	if err := s.channel.Connect(ctx); err != nil {
		return fmt.Errorf("open realtime channel: %w", err)
	}

	for _, ch := range channels {
		history, err := s.api.ChannelHistory(ctx, ch, s.cfg.Realtime.HistoryLimit)
		if err != nil {
			s.log.Warn("history fetch failed", zap.String("channel", ch), zap.Error(err))
			continue
		}
		s.msgs.Merge(history)
	}
	return nil
}

// Logout closes the channel; pending sends are not drained.
func (s *Session) Logout() error {
	return s.channel.Close()
}

func (s *Session) Connected() bool {
	return s.channel.Connected()
}

// Member, Join and Leave implement realtime.Membership.

func (s *Session) Member(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[channel]
	return ok
}

func (s *Session) Join(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = struct{}{}
}

func (s *Session) Leave(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channel)
}

// SendChat applies the optimistic local update, then transmits. The returned
// message carries the temporary optimistic ID that the server echo later
// supersedes in place. The message stays in the log even when the send is
// dropped while disconnected.
func (s *Session) SendChat(out OutgoingMessage) (models.Message, error) {
	if err := s.validate.Struct(out); err != nil {
		return models.Message{}, fmt.Errorf("validate outgoing message: %w", err)
	}

	msg := models.Message{
		ID:          models.NewOptimisticID(),
		SenderID:    s.identity,
		RecipientID: out.RecipientID,
		Content:     out.Content,
		ReplyTo:     out.ReplyTo,
		File:        out.File,
		Timestamp:   time.Now().UTC(),
	}
	s.msgs.Append(msg)
	s.bus.Publish(bus.TopicMessage, msg)

	envType := models.TypeChannelMessage
	if msg.IsDirect() {
		envType = models.TypePersonalMessage
	}
	wire := msg
	wire.ID = "" // the server assigns the real ID
	if err := s.channel.Send(models.ChatEnvelope{Type: envType, Message: wire}); err != nil {
		return msg, err
	}
	return msg, nil
}

// SetStatus changes the user's own presence optimistically and notifies the
// server.
func (s *Session) SetStatus(status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid presence status %q", status)
	}
	s.pres.Set(s.identity, status)
	return s.channel.Send(models.StatusUpdate{
		Type:   models.TypeStatusUpdate,
		UserID: s.identity,
		Status: status,
	})
}

// React toggles the user's reaction on a message: same symbol removes it, a
// different symbol replaces the previous one. Applied locally first, pending
// server confirmation.
func (s *Session) React(messageID, symbol string) error {
	upd, ok := s.msgs.ToggleReaction(messageID, s.identity, symbol)
	if !ok {
		return fmt.Errorf("unknown message %q", messageID)
	}
	s.bus.Publish(bus.TopicReaction, upd)
	return s.channel.Send(upd)
}

// Typing signals typing on a channel or direct thread, fire-and-forget.
func (s *Session) Typing(surface string, isTyping bool) error {
	return s.channel.Send(models.TypingUpdate{
		Type:     models.TypeTyping,
		UserID:   s.identity,
		Surface:  surface,
		IsTyping: isTyping,
	})
}

// DeleteForMe hides a message for this identity only.
func (s *Session) DeleteForMe(ctx context.Context, messageID string) error {
	if err := s.api.DeleteForMe(ctx, s.identity, messageID); err != nil {
		return err
	}
	s.msgs.ApplyPatch(models.MessageUpdate{
		Type:      models.TypeMessageUpdate,
		MessageID: messageID,
		Patch:     models.MessagePatch{DeletedFor: []string{s.identity}},
	})
	return nil
}

// DeleteForEveryone soft-deletes a message for all participants. The local
// patch is optimistic; the server confirms through a message_update envelope.
func (s *Session) DeleteForEveryone(ctx context.Context, messageID string) error {
	if err := s.api.DeleteForEveryone(ctx, s.identity, messageID); err != nil {
		return err
	}
	deleted := true
	s.msgs.ApplyPatch(models.MessageUpdate{
		Type:      models.TypeMessageUpdate,
		MessageID: messageID,
		Patch:     models.MessagePatch{Deleted: &deleted},
	})
	return nil
}

// SetFocus records which chat surface is on screen so notifications for it
// are suppressed.
func (s *Session) SetFocus(surface string) {
	s.notifier.SetFocus(surface)
}

func (s *Session) Focus() string {
	return s.notifier.Focus()
}

func (s *Session) Messages() []models.Message {
	return s.msgs.Messages()
}

func (s *Session) PresenceSnapshot() map[string]models.Status {
	return s.pres.Snapshot()
}

func (s *Session) UnreadNotifications() []models.Notification {
	return s.notifier.Unread()
}

func (s *Session) MarkNotificationRead(kind string, ids ...string) error {
	return s.notifier.MarkRead(kind, ids...)
}
