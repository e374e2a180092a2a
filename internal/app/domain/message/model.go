// Package message defines chat messages.
package message

import "time"

// Message is one chat message. Sender and Receiver are usernames; an
// empty Receiver addresses the public room.
type Message struct {
	ID        string
	Sender    string
	Receiver  string
	Text      string
	FileURL   string
	Timestamp time.Time
}

// IsDirect reports whether the message is addressed to a single user.
func (m Message) IsDirect() bool {
	return m.Receiver != ""
}
