// Package gamification computes XP and level transitions.
package gamification

// XPPerLevel is the per-level threshold multiplier: the XP required to
// leave level L is L * XPPerLevel.
const XPPerLevel = 1000

// TaskCompletionXP is granted once per task transition into completed.
const TaskCompletionXP = 150

// Result describes the outcome of an XP grant.
type Result struct {
	Level     int
	XP        int
	LeveledUp bool
}

// Grant adds amount to the (level, xp) pair and normalizes overflow.
// Arbitrarily large grants carry over multiple levels; the returned XP
// always satisfies 0 <= XP < Level * XPPerLevel. Pure: the caller
// persists the result and emits any downstream events.
func Grant(level, xp, amount int) Result {
	if level < 1 {
		level = 1
	}
	if xp < 0 {
		xp = 0
	}
	if amount > 0 {
		xp += amount
	}

	leveledUp := false
	for threshold := level * XPPerLevel; xp >= threshold; threshold = level * XPPerLevel {
		xp -= threshold
		level++
		leveledUp = true
	}

	return Result{Level: level, XP: xp, LeveledUp: leveledUp}
}
