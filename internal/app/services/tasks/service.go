// Package tasks manages tasks and their subtasks, and composes the XP
// grant and celebratory fan-out on completion.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/task"
	"github.com/flowstate/backend/internal/app/metrics"
	"github.com/flowstate/backend/internal/app/services/gamification"
	"github.com/flowstate/backend/internal/app/services/notifications"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/realtime"
	"github.com/flowstate/backend/pkg/logger"
)

// Service manages task records.
type Service struct {
	store    storage.Store
	pub      realtime.Publisher
	notifier *notifications.Service
	log      *logger.Logger
}

// New constructs a task service.
func New(store storage.Store, pub realtime.Publisher, notifier *notifications.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: store, pub: pub, notifier: notifier, log: log}
}

// Create stores a new task owned by userID. Priority and status default
// to normal/todo.
func (s *Service) Create(ctx context.Context, userID string, t task.Task) (task.Task, error) {
	if strings.TrimSpace(userID) == "" {
		return task.Task{}, errors.Validation("task owner is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return task.Task{}, errors.Validation("title is required")
	}
	t.UserID = userID
	if t.Priority == "" {
		t.Priority = task.PriorityNormal
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	if t.TotalHours <= 0 {
		t.TotalHours = 1
	}
	return s.store.CreateTask(ctx, t)
}

// List returns the user's tasks with subtasks embedded.
func (s *Service) List(ctx context.Context, userID string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// Get returns one task, enforcing ownership.
func (s *Service) Get(ctx context.Context, callerID, id string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	if t.UserID != callerID {
		return task.Task{}, errors.Unauthorized("task %s is not owned by caller", id)
	}
	return t, nil
}

// Patch describes a partial task update. A nil field is left untouched;
// SubTasks, when present, replaces the whole set.
type Patch struct {
	Status   *string
	Hours    *int
	SubTasks *[]task.SubTask
}

// Update applies a patch. The transition into completed status is
// edge-triggered: it grants XP and fans out exactly once, and repeated
// completed submissions grant nothing. The status flip and the XP grant
// commit in one transaction.
func (s *Service) Update(ctx context.Context, callerID, id string, p Patch) (task.Task, error) {
	var (
		updated   task.Task
		grant     gamification.Result
		granted   bool
		prevTitle string
	)

	err := s.store.Atomic(ctx, func(tx storage.Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t.UserID != callerID {
			return errors.Unauthorized("task %s is not owned by caller", id)
		}
		prevTitle = t.Title

		completing := false
		if p.Status != nil {
			completing = *p.Status == task.StatusCompleted && t.Status != task.StatusCompleted
			t.Status = *p.Status
		}
		if p.Hours != nil {
			t.Hours = *p.Hours
		}

		updated, err = tx.UpdateTask(ctx, t)
		if err != nil {
			return err
		}

		if p.SubTasks != nil {
			if err := tx.ReplaceSubTasks(ctx, id, *p.SubTasks); err != nil {
				return err
			}
			updated, err = tx.GetTask(ctx, id)
			if err != nil {
				return err
			}
		}

		if completing {
			owner, err := tx.GetUser(ctx, t.UserID)
			if err != nil {
				return err
			}
			grant = gamification.Grant(owner.Level, owner.XP, gamification.TaskCompletionXP)
			owner.Level = grant.Level
			owner.XP = grant.XP
			if _, err := tx.UpdateUser(ctx, owner); err != nil {
				return err
			}
			granted = true
		}
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	if granted {
		s.celebrate(ctx, updated.UserID, prevTitle, grant)
	}
	return updated, nil
}

// Complete flips a task into completed status.
func (s *Service) Complete(ctx context.Context, callerID, id string) (task.Task, error) {
	status := task.StatusCompleted
	return s.Update(ctx, callerID, id, Patch{Status: &status})
}

// Delete removes a task and all of its subtasks atomically.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != callerID {
		return errors.Unauthorized("task %s is not owned by caller", id)
	}
	return s.store.DeleteTask(ctx, id)
}

// celebrate runs after the completion transaction committed: the live
// xp_gain event and the persisted success notification are best-effort
// side effects, never part of the transaction.
func (s *Service) celebrate(ctx context.Context, userID, title string, grant gamification.Result) {
	metrics.XPGranted(gamification.TaskCompletionXP)

	if s.pub != nil {
		s.pub.SendTo(userID, realtime.EventXPGain, realtime.XPGainPayload{
			Amount:  gamification.TaskCompletionXP,
			NewXP:   grant.XP,
			Level:   grant.Level,
			LevelUp: grant.LeveledUp,
		})
	}

	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, userID,
			"Mission Accomplished!",
			fmt.Sprintf("You earned %d XP for completing %q", gamification.TaskCompletionXP, title),
			notification.TypeSuccess, "")
		if err != nil {
			s.log.WithError(err).Warn("completion notification failed")
		}
	}

	s.log.WithField("user_id", userID).
		WithField("level", grant.Level).
		WithField("level_up", grant.LeveledUp).
		Info("task completion rewarded")
}
