// Package event defines calendar events.
package event

import "time"

// Event is a calendar entry owned by one user. Date and Time are kept
// as the client-supplied strings (YYYY-MM-DD and HH:MM) so the calendar
// renders them without timezone conversion.
type Event struct {
	ID        string
	UserID    string
	Title     string
	Date      string
	Time      string
	Category  string
	CreatedAt time.Time
}
