// Package notifications implements the notification fan-out: durable
// record first, best-effort live push second.
package notifications

import (
	"context"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/metrics"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/realtime"
	"github.com/flowstate/backend/pkg/logger"
)

// Service persists notifications and pushes them to live connections.
type Service struct {
	store storage.NotificationStore
	pub   realtime.Publisher
	log   *logger.Logger
}

// New constructs a notification service. pub may be nil, in which case
// notifications are persisted without a live push.
func New(store storage.NotificationStore, pub realtime.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, pub: pub, log: log}
}

// Notify writes the notification record and then pushes it to the
// recipient's live connections. The write always comes first: durability
// takes priority over delivery, and a failed push is not an error.
func (s *Service) Notify(ctx context.Context, userID, title, message, typ, sender string) (notification.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return notification.Notification{}, errors.Validation("user id is required")
	}
	if typ == "" {
		typ = notification.TypeInfo
	}

	created, err := s.store.CreateNotification(ctx, notification.Notification{
		UserID:  userID,
		Sender:  sender,
		Title:   title,
		Message: message,
		Type:    typ,
	})
	if err != nil {
		return notification.Notification{}, err
	}
	metrics.NotificationCreated(typ)

	if s.pub != nil {
		s.pub.SendTo(userID, realtime.EventNotification, realtime.NotificationPayload{
			ID:       created.ID,
			Title:    created.Title,
			Message:  created.Message,
			Type:     created.Type,
			TargetID: created.UserID,
		})
	}

	s.log.WithField("user_id", userID).
		WithField("type", typ).
		Info("notification created")
	return created, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	return s.store.ListNotifications(ctx, userID)
}

// MarkRead flags a notification as read. Only the owner may do so.
func (s *Service) MarkRead(ctx context.Context, callerID, id string) error {
	if err := s.authorize(ctx, callerID, id); err != nil {
		return err
	}
	return s.store.MarkNotificationRead(ctx, id)
}

// Delete removes one notification. Only the owner may delete it; any
// other caller gets Unauthorized and the row is left intact.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if err := s.authorize(ctx, callerID, id); err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, id)
}

// Clear removes every notification owned by the caller.
func (s *Service) Clear(ctx context.Context, callerID string) error {
	return s.store.ClearNotifications(ctx, callerID)
}

func (s *Service) authorize(ctx context.Context, callerID, id string) error {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != callerID {
		return errors.Unauthorized("notification %s is not owned by caller", id)
	}
	return nil
}
