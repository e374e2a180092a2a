// Package user defines the account model shared by every service.
package user

import "time"

// DailyStats maps an ISO date (YYYY-MM-DD) to focus hours logged that day.
type DailyStats map[string]float64

// Clone returns an independent copy; a nil map clones to nil.
func (d DailyStats) Clone() DailyStats {
	if d == nil {
		return nil
	}
	out := make(DailyStats, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Add accumulates hours under the given date and returns the map,
// allocating it when needed.
func (d DailyStats) Add(date string, hours float64) DailyStats {
	if d == nil {
		d = DailyStats{}
	}
	d[date] += hours
	return d
}

// User is a registered account. PasswordHash always holds a bcrypt
// digest; plaintext never reaches storage.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	AvatarURL       string
	Level           int
	XP              int
	TotalFocusHours float64
	DailyStats      DailyStats
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
