package models

import "time"

// Envelope types exchanged over the realtime channel. Every frame is a flat
// JSON object tagged by its "type" field.
const (
	TypeStatusUpdate    = "status_update"
	TypeAllStatuses     = "all_statuses"
	TypeChannelMessage  = "channel_message"
	TypePersonalMessage = "personal_message"
	TypeChatMessage     = "chat_message"
	TypeMissedMessages  = "missed_messages"
	TypeReactionUpdate  = "reaction_update"
	TypeMessageUpdate   = "message_update"
	TypeAnnouncement    = "announcement"
	TypeChannelJoined   = "channel_joined"
	TypeChannelLeft     = "channel_left"
	TypeTyping          = "typing"
	TypePing            = "ping"
	TypePong            = "pong"
)

// Reaction actions carried by a ReactionUpdate.
const (
	ReactionAdd     = "add"
	ReactionRemove  = "remove"
	ReactionReplace = "replace"
)

// StatusUpdate merges a single user's presence into the status map.
type StatusUpdate struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status Status `json:"status"`
}

// AllStatuses replaces the status map wholesale.
type AllStatuses struct {
	Type     string            `json:"type"`
	Statuses map[string]Status `json:"statuses"`
}

// ChatEnvelope carries a single chat message, live or echoed.
type ChatEnvelope struct {
	Type string `json:"type"`
	Message
}

// MissedMessages is the backlog queued server-side while the client was
// disconnected.
type MissedMessages struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// ReactionUpdate either carries the server-computed reactions array
// (authoritative) or a single add/remove/replace action to apply optimistically.
type ReactionUpdate struct {
	Type             string     `json:"type"`
	MessageID        string     `json:"message_id"`
	UserID           string     `json:"user_id"`
	Reaction         string     `json:"reaction"`
	Action           string     `json:"action"`
	PreviousReaction string     `json:"previous_reaction,omitempty"`
	Reactions        []Reaction `json:"reactions,omitempty"`
}

// MessageUpdate applies a partial-field patch to one message.
type MessageUpdate struct {
	Type      string       `json:"type"`
	MessageID string       `json:"message_id"`
	Patch     MessagePatch `json:"patch"`
}

// MessagePatch holds the patchable message fields; nil means "leave as is".
type MessagePatch struct {
	Content    *string  `json:"content,omitempty"`
	Deleted    *bool    `json:"deleted,omitempty"`
	DeletedFor []string `json:"deleted_for,omitempty"`
}

// TypingUpdate signals a user typing in a channel or direct thread.
type TypingUpdate struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Surface  string `json:"surface"`
	IsTyping bool   `json:"is_typing"`
}

// AnnouncementEnvelope carries a portal-wide announcement.
type AnnouncementEnvelope struct {
	Type string `json:"type"`
	Announcement
}

// MembershipUpdate notifies the client that it joined or left a channel.
type MembershipUpdate struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Liveness is a ping or pong frame.
type Liveness struct {
	Type string `json:"type"`
}

// Announcement is a portal-wide broadcast shown to every employee.
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
