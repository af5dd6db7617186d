package realtime

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/models"
)

// dispatch classifies one inbound frame by its type tag and routes it.
// Malformed frames are logged and discarded; they never close the connection.
// Every accepted envelope is re-published on the bus after the internal state
// mutation so mounted views can update their own lists.
func (c *Channel) dispatch(frame []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil || head.Type == "" {
		envelopesReceived.WithLabelValues("malformed").Inc()
		c.log.Warn("discarding malformed frame", zap.ByteString("frame", frame))
		return
	}
	envelopesReceived.WithLabelValues(head.Type).Inc()

	switch head.Type {
	case models.TypeStatusUpdate:
		c.handleStatusUpdate(frame)
	case models.TypeAllStatuses:
		c.handleAllStatuses(frame)
	case models.TypeChannelMessage, models.TypePersonalMessage, models.TypeChatMessage:
		c.handleChat(frame)
	case models.TypeMissedMessages:
		c.handleMissed(frame)
	case models.TypeReactionUpdate:
		c.handleReaction(frame)
	case models.TypeMessageUpdate:
		c.handleMessageUpdate(frame)
	case models.TypeAnnouncement:
		c.handleAnnouncement(frame)
	case models.TypeChannelJoined, models.TypeChannelLeft:
		c.handleMembership(frame)
	case models.TypeTyping:
		c.handleTyping(frame)
	case models.TypePing:
		if err := c.Send(models.Liveness{Type: models.TypePong}); err != nil {
			c.log.Debug("pong reply failed", zap.Error(err))
		}
	case models.TypePong:
		// liveness only
	default:
		c.log.Debug("ignoring unknown envelope type", zap.String("type", head.Type))
	}
}

func (c *Channel) handleStatusUpdate(frame []byte) {
	var env models.StatusUpdate
	if !c.decode(frame, &env) {
		return
	}
	c.pres.Set(env.UserID, env.Status)
	c.bus.Publish(bus.TopicPresence, env)
}

func (c *Channel) handleAllStatuses(frame []byte) {
	var env models.AllStatuses
	if !c.decode(frame, &env) {
		return
	}
	c.pres.Replace(env.Statuses)
	c.bus.Publish(bus.TopicPresence, c.pres.Snapshot())
}

func (c *Channel) handleChat(frame []byte) {
	var env models.ChatEnvelope
	if !c.decode(frame, &env) {
		return
	}
	msg := env.Message

	if msg.SenderID == c.opts.Identity {
		// Echo of a local send: supersede the optimistic entry in place.
		if !c.msgs.ConfirmOptimistic(msg) && !c.msgs.Append(msg) {
			return
		}
		c.bus.Publish(bus.TopicMessage, msg)
		return
	}

	if !c.relevant(msg) {
		return
	}
	if !c.msgs.Append(msg) {
		return // duplicate of a live or missed delivery
	}
	c.notify.RaiseMessage(msg)
	c.bus.Publish(bus.TopicMessage, msg)
}

func (c *Channel) handleMissed(frame []byte) {
	var env models.MissedMessages
	if !c.decode(frame, &env) {
		return
	}
	accepted := make([]models.Message, 0, len(env.Messages))
	for _, msg := range env.Messages {
		if msg.SenderID == c.opts.Identity || c.relevant(msg) {
			accepted = append(accepted, msg)
		}
	}
	added := c.msgs.Merge(accepted)
	if added == 0 {
		return
	}
	c.notify.RaiseMissed(added)
	c.bus.Publish(bus.TopicMissed, accepted)
}

func (c *Channel) handleReaction(frame []byte) {
	var env models.ReactionUpdate
	if !c.decode(frame, &env) {
		return
	}
	if !c.msgs.ApplyReactionUpdate(env) {
		c.log.Debug("reaction for unknown message", zap.String("message_id", env.MessageID))
		return
	}
	c.bus.Publish(bus.TopicReaction, env)
}

func (c *Channel) handleMessageUpdate(frame []byte) {
	var env models.MessageUpdate
	if !c.decode(frame, &env) {
		return
	}
	if !c.msgs.ApplyPatch(env) {
		c.log.Debug("patch for unknown message", zap.String("message_id", env.MessageID))
		return
	}
	c.bus.Publish(bus.TopicMessageUpdate, env)
}

func (c *Channel) handleAnnouncement(frame []byte) {
	var env models.AnnouncementEnvelope
	if !c.decode(frame, &env) {
		return
	}
	c.notify.RaiseAnnouncement(env.Announcement)
	c.bus.Publish(bus.TopicAnnouncement, env.Announcement)
}

func (c *Channel) handleMembership(frame []byte) {
	var env models.MembershipUpdate
	if !c.decode(frame, &env) {
		return
	}
	if env.Type == models.TypeChannelJoined {
		c.member.Join(env.Channel)
	} else {
		c.member.Leave(env.Channel)
	}
}

func (c *Channel) handleTyping(frame []byte) {
	var env models.TypingUpdate
	if !c.decode(frame, &env) {
		return
	}
	c.bus.Publish(bus.TopicTyping, env)
}

// relevant applies the relevance filter: a direct message must be addressed
// to the current identity, a channel message must target a channel the
// identity belongs to. Everything else is silently discarded.
func (c *Channel) relevant(msg models.Message) bool {
	if msg.IsDirect() {
		return msg.RecipientID == c.opts.Identity
	}
	return c.member.Member(msg.RecipientID)
}

func (c *Channel) decode(frame []byte, out any) bool {
	if err := json.Unmarshal(frame, out); err != nil {
		c.log.Warn("discarding malformed envelope", zap.Error(err))
		return false
	}
	return true
}
