package storage

import (
	"context"

	"github.com/flowstate/backend/internal/app/domain/event"
	"github.com/flowstate/backend/internal/app/domain/friendship"
	"github.com/flowstate/backend/internal/app/domain/habit"
	"github.com/flowstate/backend/internal/app/domain/message"
	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/task"
	"github.com/flowstate/backend/internal/app/domain/user"
)

// UserStore persists user records. Username lookups are case-insensitive.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// TaskStore persists tasks together with their subtasks. Subtask sets are
// replaced wholesale and deleted with their parent task.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasks(ctx context.Context, userID string) ([]task.Task, error)
	ReplaceSubTasks(ctx context.Context, taskID string, subs []task.SubTask) error
	DeleteTask(ctx context.Context, id string) error
}

// HabitStore persists habit records.
type HabitStore interface {
	CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	GetHabit(ctx context.Context, id string) (habit.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]habit.Habit, error)
	ListAllHabits(ctx context.Context) ([]habit.Habit, error)
	DeleteHabit(ctx context.Context, id string) error
}

// EventStore persists calendar events.
type EventStore interface {
	CreateEvent(ctx context.Context, ev event.Event) (event.Event, error)
	GetEvent(ctx context.Context, id string) (event.Event, error)
	ListEvents(ctx context.Context, userID string) ([]event.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// FriendshipStore persists directed friendship edges.
type FriendshipStore interface {
	CreateFriendship(ctx context.Context, f friendship.Friendship) (friendship.Friendship, error)
	UpdateFriendship(ctx context.Context, f friendship.Friendship) (friendship.Friendship, error)
	GetFriendship(ctx context.Context, userID, friendID string) (friendship.Friendship, error)
	ListFriendships(ctx context.Context, userID, status string) ([]friendship.Friendship, error)
}

// NotificationStore persists notifications. Listing returns newest first.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
	ClearNotifications(ctx context.Context, userID string) error
}

// MessageStore persists chat messages. Conversations list oldest first.
type MessageStore interface {
	CreateMessage(ctx context.Context, m message.Message) (message.Message, error)
	ListConversation(ctx context.Context, userA, userB string) ([]message.Message, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	TaskStore
	HabitStore
	EventStore
	FriendshipStore
	NotificationStore
	MessageStore

	// Atomic runs fn against a transactional view of the store and commits
	// only if fn returns nil. Inside fn the provided Store is already
	// transactional; nested Atomic calls run in the same transaction.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// Maintainer is implemented by stores that can report reachability and
// ensure their schema exists. Schema-ensure never mutates data.
type Maintainer interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}
