// Package events manages calendar events.
package events

import (
	"context"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/event"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/pkg/logger"
)

// Service manages calendar entries.
type Service struct {
	store storage.EventStore
	log   *logger.Logger
}

// New constructs an events service.
func New(store storage.EventStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &Service{store: store, log: log}
}

// Create stores a new event owned by userID.
func (s *Service) Create(ctx context.Context, userID string, ev event.Event) (event.Event, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return event.Event{}, errors.Validation("title is required")
	}
	if strings.TrimSpace(ev.Date) == "" {
		return event.Event{}, errors.Validation("date is required")
	}
	ev.UserID = userID
	return s.store.CreateEvent(ctx, ev)
}

// List returns the user's events ordered by date and time.
func (s *Service) List(ctx context.Context, userID string) ([]event.Event, error) {
	return s.store.ListEvents(ctx, userID)
}

// Delete removes an event, enforcing ownership.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if ev.UserID != callerID {
		return errors.Unauthorized("event %s is not owned by caller", id)
	}
	return s.store.DeleteEvent(ctx, id)
}
