// Package friendship defines the directed friendship edge.
package friendship

import "time"

// Friendship statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship is one directed edge from UserID to FriendID. A request
// creates a single pending edge; acceptance upgrades it and inserts the
// mirror edge, so an accepted friendship is always two rows.
type Friendship struct {
	ID        string
	UserID    string
	FriendID  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
