// Package habits manages weekly habits and the cadence rollover that
// resets them at the start of each week.
package habits

import (
	"context"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/habit"
	"github.com/flowstate/backend/internal/app/metrics"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/pkg/logger"
)

// Service manages habit records.
type Service struct {
	store storage.Store
	log   *logger.Logger
}

// New constructs a habit service.
func New(store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("habits")
	}
	return &Service{store: store, log: log}
}

// Create stores a new habit with an empty week.
func (s *Service) Create(ctx context.Context, userID string, h habit.Habit) (habit.Habit, error) {
	if strings.TrimSpace(h.Title) == "" {
		return habit.Habit{}, errors.Validation("title is required")
	}
	h.UserID = userID
	h.WeeklyCompletion = habit.EmptyWeek
	h.Streak = 0
	return s.store.CreateHabit(ctx, h)
}

// List returns the user's habits.
func (s *Service) List(ctx context.Context, userID string) ([]habit.Habit, error) {
	return s.store.ListHabits(ctx, userID)
}

// Patch describes a partial habit update.
type Patch struct {
	Title            *string
	WeeklyCompletion *string
}

// Update applies a patch, enforcing ownership and the week bitstring
// format.
func (s *Service) Update(ctx context.Context, callerID, id string, p Patch) (habit.Habit, error) {
	h, err := s.authorize(ctx, callerID, id)
	if err != nil {
		return habit.Habit{}, err
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return habit.Habit{}, errors.Validation("title is required")
		}
		h.Title = *p.Title
	}
	if p.WeeklyCompletion != nil {
		if !habit.ValidWeek(*p.WeeklyCompletion) {
			return habit.Habit{}, errors.Validation("weekly_completion must be %d characters of 0/1", habit.WeekLength)
		}
		h.WeeklyCompletion = *p.WeeklyCompletion
	}
	return s.store.UpdateHabit(ctx, h)
}

// Delete removes a habit, enforcing ownership.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.authorize(ctx, callerID, id); err != nil {
		return err
	}
	return s.store.DeleteHabit(ctx, id)
}

func (s *Service) authorize(ctx context.Context, callerID, id string) (habit.Habit, error) {
	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return habit.Habit{}, err
	}
	if h.UserID != callerID {
		return habit.Habit{}, errors.Unauthorized("habit %s is not owned by caller", id)
	}
	return h, nil
}

// Rollover closes the week for every habit in one transaction: a fully
// completed week extends the streak, anything else resets it, and every
// habit starts the new week empty. There is no catch-up for missed
// runs.
func (s *Service) Rollover(ctx context.Context) error {
	var swept, extended int

	err := s.store.Atomic(ctx, func(tx storage.Store) error {
		all, err := tx.ListAllHabits(ctx)
		if err != nil {
			return err
		}
		for _, h := range all {
			if h.WeeklyCompletion == habit.FullWeek {
				h.Streak++
				extended++
			} else {
				h.Streak = 0
			}
			h.WeeklyCompletion = habit.EmptyWeek
			if _, err := tx.UpdateHabit(ctx, h); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		metrics.HabitRollover("error")
		return err
	}

	metrics.HabitRollover("ok")
	s.log.WithField("habits", swept).WithField("streaks_extended", extended).Info("weekly habit rollover complete")
	return nil
}
