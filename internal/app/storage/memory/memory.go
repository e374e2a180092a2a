// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowstate/backend/internal/app/domain/event"
	"github.com/flowstate/backend/internal/app/domain/friendship"
	"github.com/flowstate/backend/internal/app/domain/habit"
	"github.com/flowstate/backend/internal/app/domain/message"
	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/task"
	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage"
	apperrors "github.com/flowstate/backend/internal/errors"
)

// Store is the in-memory storage implementation.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[string]user.User
	usersByName   map[string]string // lower(username) -> id
	tasks         map[string]task.Task
	subtasks      map[string][]task.SubTask
	habits        map[string]habit.Habit
	events        map[string]event.Event
	friendships   map[string]friendship.Friendship // userID + "/" + friendID
	notifications []notification.Notification
	messages      []message.Message
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		users:       make(map[string]user.User),
		usersByName: make(map[string]string),
		tasks:       make(map[string]task.Task),
		subtasks:    make(map[string][]task.SubTask),
		habits:      make(map[string]habit.Habit),
		events:      make(map[string]event.Event),
		friendships: make(map[string]friendship.Friendship),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func edgeKey(userID, friendID string) string { return userID + "/" + friendID }

// Atomic clones the full store state, runs fn against the clone and swaps
// the state back in only when fn succeeds, so a failed fn leaves no
// partial writes behind. The store lock is held for the whole
// clone-run-adopt span: direct operations block until the transaction
// settles instead of being overwritten by the adopted snapshot. fn must
// only touch the store it is handed, never the parent.
func (s *Store) Atomic(ctx context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.cloneLocked()
	if err := fn(clone); err != nil {
		return err
	}
	s.adoptLocked(clone)
	return nil
}

func (s *Store) cloneLocked() *Store {
	c := New()
	c.nextID = s.nextID
	for k, v := range s.users {
		v.DailyStats = v.DailyStats.Clone()
		c.users[k] = v
	}
	for k, v := range s.usersByName {
		c.usersByName[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.subtasks {
		c.subtasks[k] = append([]task.SubTask(nil), v...)
	}
	for k, v := range s.habits {
		c.habits[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.friendships {
		c.friendships[k] = v
	}
	c.notifications = append([]notification.Notification(nil), s.notifications...)
	c.messages = append([]message.Message(nil), s.messages...)
	return c
}

func (s *Store) adoptLocked(c *Store) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s.nextID = c.nextID
	s.users = c.users
	s.usersByName = c.usersByName
	s.tasks = c.tasks
	s.subtasks = c.subtasks
	s.habits = c.habits
	s.events = c.events
	s.friendships = c.friendships
	s.notifications = c.notifications
	s.messages = c.messages
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := s.usersByName[key]; exists {
		return user.User{}, apperrors.Conflict("username %s already exists", u.Username)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Level < 1 {
		u.Level = 1
	}
	s.users[u.ID] = u
	s.usersByName[key] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, apperrors.NotFound("user %s not found", u.ID)
	}
	u.Username = existing.Username
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, apperrors.NotFound("user %s not found", id)
	}
	u.DailyStats = u.DailyStats.Clone()
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[strings.ToLower(username)]
	if !ok {
		return user.User{}, apperrors.NotFound("user %s not found", username)
	}
	u := s.users[id]
	u.DailyStats = u.DailyStats.Clone()
	return u, nil
}

func (s *Store) SearchUsers(_ context.Context, query string, limit int) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var result []user.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), q) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// TaskStore implementation ----------------------------------------------------

func (s *Store) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	if _, exists := s.tasks[t.ID]; exists {
		return task.Task{}, apperrors.Conflict("task %s already exists", t.ID)
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	subs := t.SubTasks
	t.SubTasks = nil
	s.tasks[t.ID] = t
	s.setSubTasksLocked(t.ID, subs)
	return s.taskWithSubsLocked(t), nil
}

func (s *Store) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, apperrors.NotFound("task %s not found", t.ID)
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	t.SubTasks = nil
	s.tasks[t.ID] = t
	return s.taskWithSubsLocked(t), nil
}

func (s *Store) GetTask(_ context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, apperrors.NotFound("task %s not found", id)
	}
	return s.taskWithSubsLocked(t), nil
}

func (s *Store) ListTasks(_ context.Context, userID string) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []task.Task
	for _, t := range s.tasks {
		if userID == "" || t.UserID == userID {
			result = append(result, s.taskWithSubsLocked(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ReplaceSubTasks(_ context.Context, taskID string, subs []task.SubTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return apperrors.NotFound("task %s not found", taskID)
	}
	s.setSubTasksLocked(taskID, subs)
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return apperrors.NotFound("task %s not found", id)
	}
	delete(s.tasks, id)
	delete(s.subtasks, id)
	return nil
}

func (s *Store) setSubTasksLocked(taskID string, subs []task.SubTask) {
	out := make([]task.SubTask, 0, len(subs))
	for _, st := range subs {
		if st.ID == "" {
			st.ID = s.nextIDLocked()
		}
		st.TaskID = taskID
		out = append(out, st)
	}
	s.subtasks[taskID] = out
}

func (s *Store) taskWithSubsLocked(t task.Task) task.Task {
	t.SubTasks = append([]task.SubTask(nil), s.subtasks[t.ID]...)
	return t
}

// HabitStore implementation ---------------------------------------------------

func (s *Store) CreateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = s.nextIDLocked()
	}
	if h.WeeklyCompletion == "" {
		h.WeeklyCompletion = habit.EmptyWeek
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	s.habits[h.ID] = h
	return h, nil
}

func (s *Store) UpdateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.habits[h.ID]
	if !ok {
		return habit.Habit{}, apperrors.NotFound("habit %s not found", h.ID)
	}
	h.UserID = existing.UserID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()
	s.habits[h.ID] = h
	return h, nil
}

func (s *Store) GetHabit(_ context.Context, id string) (habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.habits[id]
	if !ok {
		return habit.Habit{}, apperrors.NotFound("habit %s not found", id)
	}
	return h, nil
}

func (s *Store) ListHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []habit.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListAllHabits(_ context.Context) ([]habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]habit.Habit, 0, len(s.habits))
	for _, h := range s.habits {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteHabit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.habits[id]; !ok {
		return apperrors.NotFound("habit %s not found", id)
	}
	delete(s.habits, id)
	return nil
}

// EventStore implementation ---------------------------------------------------

func (s *Store) CreateEvent(_ context.Context, ev event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = s.nextIDLocked()
	}
	ev.CreatedAt = time.Now().UTC()
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return event.Event{}, apperrors.NotFound("event %s not found", id)
	}
	return ev, nil
}

func (s *Store) ListEvents(_ context.Context, userID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, ev := range s.events {
		if ev.UserID == userID {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return apperrors.NotFound("event %s not found", id)
	}
	delete(s.events, id)
	return nil
}

// FriendshipStore implementation ----------------------------------------------

func (s *Store) CreateFriendship(_ context.Context, f friendship.Friendship) (friendship.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey(f.UserID, f.FriendID)
	if _, exists := s.friendships[key]; exists {
		return friendship.Friendship{}, apperrors.Conflict("friendship %s already exists", key)
	}
	if f.ID == "" {
		f.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.friendships[key] = f
	return f, nil
}

func (s *Store) UpdateFriendship(_ context.Context, f friendship.Friendship) (friendship.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey(f.UserID, f.FriendID)
	existing, ok := s.friendships[key]
	if !ok {
		return friendship.Friendship{}, apperrors.NotFound("friendship %s not found", key)
	}
	f.ID = existing.ID
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()
	s.friendships[key] = f
	return f, nil
}

func (s *Store) GetFriendship(_ context.Context, userID, friendID string) (friendship.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.friendships[edgeKey(userID, friendID)]
	if !ok {
		return friendship.Friendship{}, apperrors.NotFound("friendship %s/%s not found", userID, friendID)
	}
	return f, nil
}

func (s *Store) ListFriendships(_ context.Context, userID, status string) ([]friendship.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []friendship.Friendship
	for _, f := range s.friendships {
		if f.UserID == userID && (status == "" || f.Status == status) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	n.CreatedAt = time.Now().UTC()
	s.notifications = append(s.notifications, n)
	return n, nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return notification.Notification{}, apperrors.NotFound("notification %s not found", id)
}

func (s *Store) ListNotifications(_ context.Context, userID string) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Append order tracks creation time; reverse for newest-first.
	var result []notification.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			result = append(result, s.notifications[i])
		}
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return apperrors.NotFound("notification %s not found", id)
}

func (s *Store) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("notification %s not found", id)
}

func (s *Store) ClearNotifications(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	return nil
}

// MessageStore implementation -------------------------------------------------

func (s *Store) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *Store) ListConversation(_ context.Context, userA, userB string) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []message.Message
	for _, m := range s.messages {
		if (m.Sender == userA && m.Receiver == userB) || (m.Sender == userB && m.Receiver == userA) {
			result = append(result, m)
		}
	}
	return result, nil
}
