package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// DeletedPlaceholder replaces the content of a message removed for everyone.
const DeletedPlaceholder = "This message was deleted"

const optimisticPrefix = "optimistic-"

// optimisticSeq breaks ties between messages created in the same nanosecond.
var optimisticSeq uint64

// Message is a chat message, either confirmed by the server (ID assigned)
// or pending confirmation (optimistic ID).
type Message struct {
	ID          string     `json:"id,omitempty"`
	SenderID    string     `json:"sender_id"`
	SenderName  string     `json:"sender_name,omitempty"`
	RecipientID string     `json:"recipient_id"`
	Content     string     `json:"content"`
	ReplyTo     string     `json:"reply_to,omitempty"`
	File        *FileInfo  `json:"file,omitempty"`
	Timestamp   time.Time  `json:"timestamp,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
	Deleted     bool       `json:"deleted,omitempty"`
	DeletedFor  []string   `json:"deleted_for,omitempty"`
}

// FileInfo describes an attachment already uploaded to the portal.
type FileInfo struct {
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Reaction is one user's reaction on a message.
type Reaction struct {
	UserID string `json:"user_id"`
	Symbol string `json:"symbol"`
}

// IsOptimistic reports whether the message is still awaiting server
// confirmation.
func (m Message) IsOptimistic() bool {
	return strings.HasPrefix(m.ID, optimisticPrefix)
}

// IsDirect reports whether the message targets a user rather than a channel.
func (m Message) IsDirect() bool {
	return IsDirectRecipient(m.RecipientID)
}

// IsDirectRecipient distinguishes a user identity from a channel name.
// Identities are emails, channel names never contain "@".
func IsDirectRecipient(recipient string) bool {
	return strings.Contains(recipient, "@")
}

// NewOptimisticID returns a temporary client-side message ID.
func NewOptimisticID() string {
	seq := atomic.AddUint64(&optimisticSeq, 1)
	return fmt.Sprintf("%s%d-%d", optimisticPrefix, time.Now().UnixNano(), seq)
}
