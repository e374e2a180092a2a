// Package notification defines the persisted inbox record behind every
// real-time push.
package notification

import "time"

// Notification types, carried verbatim to the client.
const (
	TypeFriendRequest = "friend_request"
	TypeInfo          = "info"
	TypeMessage       = "message"
	TypeSuccess       = "success"
)

// Notification is an inbox entry for one user. Sender is the username
// that caused it, empty for system-generated entries.
type Notification struct {
	ID        string
	UserID    string
	Sender    string
	Title     string
	Message   string
	Type      string
	Read      bool
	CreatedAt time.Time
}
