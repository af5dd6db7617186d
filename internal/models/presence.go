package models

// Status is a user's availability state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

// Valid reports whether s is one of the known presence states.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// UserStatus is one entry of the presence snapshot returned by
// GET /users/status.
type UserStatus struct {
	UserID string `json:"user_id"`
	Status Status `json:"status"`
}
