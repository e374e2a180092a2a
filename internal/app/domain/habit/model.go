// Package habit defines weekly habits tracked as a 7-day bitstring.
package habit

import (
	"strings"
	"time"
)

// WeekLength is the number of days carried by WeeklyCompletion.
const WeekLength = 7

// Canonical week bitstrings. Position 0 is Monday.
const (
	EmptyWeek = "0000000"
	FullWeek  = "1111111"
)

// Habit is a recurring weekly commitment. WeeklyCompletion is a string
// of exactly seven '0'/'1' characters; Streak counts consecutive fully
// completed weeks.
type Habit struct {
	ID               string
	UserID           string
	Title            string
	WeeklyCompletion string
	Streak           int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidWeek reports whether s is a well-formed week bitstring.
func ValidWeek(s string) bool {
	if len(s) != WeekLength {
		return false
	}
	for _, c := range s {
		if c != '0' && c != '1' {
			return false
		}
	}
	return true
}

// CompletionRatio returns the fraction of days marked done, in [0, 1].
// A malformed bitstring counts only its '1' characters.
func (h Habit) CompletionRatio() float64 {
	done := strings.Count(h.WeeklyCompletion, "1")
	return float64(done) / WeekLength
}
