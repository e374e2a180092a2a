package gamification

import "testing"

func TestGrant(t *testing.T) {
	cases := []struct {
		name          string
		level, xp     int
		amount        int
		wantLevel     int
		wantXP        int
		wantLeveledUp bool
	}{
		{"no level up", 1, 100, 150, 1, 250, false},
		{"exact threshold", 1, 900, 100, 2, 0, true},
		{"single level up", 1, 900, 150, 2, 50, true},
		{"multi level carry", 1, 900, 2500, 3, 400, true},
		{"zero amount", 3, 500, 0, 3, 500, false},
		{"negative amount ignored", 2, 100, -50, 2, 100, false},
		{"high level threshold", 5, 4900, 50, 5, 4950, false},
		{"high level up", 5, 4900, 200, 6, 100, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Grant(tc.level, tc.xp, tc.amount)
			if got.Level != tc.wantLevel || got.XP != tc.wantXP || got.LeveledUp != tc.wantLeveledUp {
				t.Fatalf("Grant(%d, %d, %d) = %+v, want level=%d xp=%d leveledUp=%v",
					tc.level, tc.xp, tc.amount, got, tc.wantLevel, tc.wantXP, tc.wantLeveledUp)
			}
		})
	}
}

func TestGrantInvariant(t *testing.T) {
	for level := 1; level <= 10; level++ {
		for _, xp := range []int{0, 1, 499, 999} {
			for _, amount := range []int{0, 1, 150, 1000, 12345, 100000} {
				got := Grant(level, xp, amount)
				if got.XP < 0 || got.XP >= got.Level*XPPerLevel {
					t.Fatalf("Grant(%d, %d, %d): xp %d outside [0, %d)", level, xp, amount, got.XP, got.Level*XPPerLevel)
				}
				if got.Level < level {
					t.Fatalf("Grant(%d, %d, %d): level decreased to %d", level, xp, amount, got.Level)
				}
			}
		}
	}
}
