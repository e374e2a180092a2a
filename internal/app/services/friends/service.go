// Package friends manages friend requests and the social graph.
package friends

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/friendship"
	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/services/notifications"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/pkg/logger"
)

// Service manages friendship edges.
type Service struct {
	store    storage.Store
	notifier *notifications.Service
	log      *logger.Logger
}

// New constructs a friends service.
func New(store storage.Store, notifier *notifications.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("friends")
	}
	return &Service{store: store, notifier: notifier, log: log}
}

// Friend is the profile projection returned by List.
type Friend struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Level  int    `json:"level"`
}

// Add sends a friend request from the caller to targetUsername: a
// single pending edge plus a notification to the target. A duplicate
// request surfaces the store's conflict.
func (s *Service) Add(ctx context.Context, callerID, targetUsername string) error {
	if strings.TrimSpace(targetUsername) == "" {
		return errors.Validation("target username is required")
	}

	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return err
	}
	target, err := s.store.GetUserByUsername(ctx, targetUsername)
	if err != nil {
		return err
	}
	if target.ID == caller.ID {
		return errors.Validation("cannot send a friend request to yourself")
	}

	_, err = s.store.CreateFriendship(ctx, friendship.Friendship{
		UserID:   caller.ID,
		FriendID: target.ID,
		Status:   friendship.StatusPending,
	})
	if err != nil {
		return err
	}

	_, err = s.notifier.Notify(ctx, target.ID,
		"Friend Request",
		fmt.Sprintf("%s sent you a friend request!", caller.Username),
		notification.TypeFriendRequest, caller.Username)
	if err != nil {
		s.log.WithError(err).Warn("friend request notification failed")
	}
	return nil
}

// Accept completes a friend request from senderUsername: both directed
// edges end up accepted in one transaction, creating whichever side is
// missing. Accepting an already accepted friendship is a no-op apart
// from the acceptance notification.
func (s *Service) Accept(ctx context.Context, callerID, senderUsername string) error {
	caller, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return err
	}
	sender, err := s.store.GetUserByUsername(ctx, senderUsername)
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, func(tx storage.Store) error {
		if err := acceptEdge(ctx, tx, caller.ID, sender.ID); err != nil {
			return err
		}
		return acceptEdge(ctx, tx, sender.ID, caller.ID)
	})
	if err != nil {
		return err
	}

	_, err = s.notifier.Notify(ctx, sender.ID,
		"Request Accepted",
		fmt.Sprintf("%s accepted your friend request!", caller.Username),
		notification.TypeInfo, caller.Username)
	if err != nil {
		s.log.WithError(err).Warn("acceptance notification failed")
	}
	return nil
}

// acceptEdge upgrades the userID→friendID edge to accepted, inserting
// it if absent.
func acceptEdge(ctx context.Context, tx storage.Store, userID, friendID string) error {
	f, err := tx.GetFriendship(ctx, userID, friendID)
	if errors.Is(err, errors.ErrNotFound) {
		_, err = tx.CreateFriendship(ctx, friendship.Friendship{
			UserID:   userID,
			FriendID: friendID,
			Status:   friendship.StatusAccepted,
		})
		return err
	}
	if err != nil {
		return err
	}
	if f.Status == friendship.StatusAccepted {
		return nil
	}
	f.Status = friendship.StatusAccepted
	_, err = tx.UpdateFriendship(ctx, f)
	return err
}

// List returns the caller's accepted friends as profile projections.
// Edges pointing at deleted users are skipped.
func (s *Service) List(ctx context.Context, callerID string) ([]Friend, error) {
	edges, err := s.store.ListFriendships(ctx, callerID, friendship.StatusAccepted)
	if err != nil {
		return nil, err
	}

	friends := make([]Friend, 0, len(edges))
	for _, f := range edges {
		u, err := s.store.GetUser(ctx, f.FriendID)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, Friend{
			ID:     u.ID,
			Name:   u.Username,
			Avatar: u.AvatarURL,
			Level:  u.Level,
		})
	}
	return friends, nil
}
