// Package focus records completed focus sessions against the user's
// lifetime total and per-day stats.
package focus

import (
	"context"
	"time"

	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/pkg/logger"
)

// Service accumulates focus hours.
type Service struct {
	store storage.Store
	now   func() time.Time
	log   *logger.Logger
}

// New constructs a focus service.
func New(store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("focus")
	}
	return &Service{store: store, now: time.Now, log: log}
}

// Track adds hours to the user's lifetime total and to today's entry in
// the daily stats, in one transaction. Hours must be positive.
func (s *Service) Track(ctx context.Context, userID string, hours float64) (user.User, error) {
	if hours <= 0 {
		return user.User{}, errors.Validation("hours must be positive")
	}

	var updated user.User
	err := s.store.Atomic(ctx, func(tx storage.Store) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		today := s.now().UTC().Format("2006-01-02")
		u.TotalFocusHours += hours
		u.DailyStats = u.DailyStats.Add(today, hours)
		updated, err = tx.UpdateUser(ctx, u)
		return err
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", userID).WithField("hours", hours).Info("focus session tracked")
	return updated, nil
}
