package models

import "time"

// Notification kinds.
const (
	NotificationMessage      = "message"
	NotificationMissed       = "missed"
	NotificationAnnouncement = "announcement"
)

// Notification is derived from inbound envelopes not authored by the current
// identity and not currently being viewed. It lives in memory; only the set
// of read IDs is persisted.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Surface   string    `json:"surface,omitempty"`
	Count     int       `json:"count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection states published on the bus.
const (
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateDisconnected = "disconnected"
	StateFailed       = "failed"
)

// ConnState describes the realtime channel's connection lifecycle. StateFailed
// is terminal: the reconnect budget is spent and the user must log in again.
type ConnState struct {
	State   string        `json:"state"`
	Attempt int           `json:"attempt,omitempty"`
	Wait    time.Duration `json:"wait,omitempty"`
	Err     string        `json:"error,omitempty"`
}
