// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

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

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// serves plain and transactional access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ storage.Store = (*Store)(nil)
var _ storage.Maintainer = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Atomic runs fn inside a SQL transaction. When the store is already
// transactional the function runs in the ambient transaction.
func (s *Store) Atomic(ctx context.Context, fn func(storage.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Store(fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Store(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// Ping reports database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func storeErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperrors.Conflict("%s: duplicate value", op)
	}
	return apperrors.Store(fmt.Errorf("%s: %w", op, err))
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Level < 1 {
		u.Level = 1
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	statsJSON, err := json.Marshal(u.DailyStats)
	if err != nil {
		return user.User{}, apperrors.Store(err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, avatar_url, level, xp, total_focus_hours, daily_stats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarURL, u.Level, u.XP, u.TotalFocusHours, statsJSON, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, storeErr("create user", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	statsJSON, err := json.Marshal(u.DailyStats)
	if err != nil {
		return user.User{}, apperrors.Store(err)
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, avatar_url = $4, level = $5, xp = $6,
		    total_focus_hours = $7, daily_stats = $8, updated_at = $9
		WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash, u.AvatarURL, u.Level, u.XP, u.TotalFocusHours, statsJSON, u.UpdatedAt)
	if err != nil {
		return user.User{}, storeErr("update user", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, apperrors.NotFound("user %s not found", u.ID)
	}
	return u, nil
}

const userColumns = `id, username, email, password_hash, avatar_url, level, xp, total_focus_hours, daily_stats, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var (
		u        user.User
		statsRaw []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvatarURL,
		&u.Level, &u.XP, &u.TotalFocusHours, &statsRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	if len(statsRaw) > 0 {
		_ = json.Unmarshal(statsRaw, &u.DailyStats)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, apperrors.NotFound("user %s not found", id)
	}
	if err != nil {
		return user.User{}, storeErr("get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, apperrors.NotFound("user %s not found", username)
	}
	if err != nil {
		return user.User{}, storeErr("get user by username", err)
	}
	return u, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]user.User, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, storeErr("search users", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]user.User, error) {
	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- TaskStore --------------------------------------------------------------

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, priority, status, total_hours, hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.TotalHours, t.Hours, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return task.Task{}, storeErr("create task", err)
	}
	if err := s.ReplaceSubTasks(ctx, t.ID, t.SubTasks); err != nil {
		return task.Task{}, err
	}
	return s.GetTask(ctx, t.ID)
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, priority = $4, status = $5, total_hours = $6, hours = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, t.TotalHours, t.Hours, t.UpdatedAt)
	if err != nil {
		return task.Task{}, storeErr("update task", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return task.Task{}, apperrors.NotFound("task %s not found", t.ID)
	}
	return s.GetTask(ctx, t.ID)
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, priority, status, total_hours, hours, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id)

	var t task.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.TotalHours, &t.Hours, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, apperrors.NotFound("task %s not found", id)
	}
	if err != nil {
		return task.Task{}, storeErr("get task", err)
	}

	subs, err := s.listSubTasks(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	t.SubTasks = subs
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, title, description, priority, status, total_hours, hours, created_at, updated_at
		FROM tasks WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status,
			&t.TotalHours, &t.Hours, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, storeErr("scan task", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list tasks", err)
	}

	for i := range result {
		subs, err := s.listSubTasks(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].SubTasks = subs
	}
	return result, nil
}

func (s *Store) ReplaceSubTasks(ctx context.Context, taskID string, subs []task.SubTask) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM subtasks WHERE task_id = $1`, taskID); err != nil {
		return storeErr("clear subtasks", err)
	}
	for _, st := range subs {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO subtasks (id, task_id, title, completed)
			VALUES ($1, $2, $3, $4)
		`, st.ID, taskID, st.Title, st.Completed); err != nil {
			return storeErr("insert subtask", err)
		}
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	// Subtask rows cascade via the foreign key.
	result, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete task", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("task %s not found", id)
	}
	return nil
}

func (s *Store) listSubTasks(ctx context.Context, taskID string) ([]task.SubTask, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, task_id, title, completed FROM subtasks WHERE task_id = $1 ORDER BY id
	`, taskID)
	if err != nil {
		return nil, storeErr("list subtasks", err)
	}
	defer rows.Close()

	var result []task.SubTask
	for rows.Next() {
		var st task.SubTask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed); err != nil {
			return nil, storeErr("scan subtask", err)
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// --- HabitStore -------------------------------------------------------------

func (s *Store) CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.WeeklyCompletion == "" {
		h.WeeklyCompletion = habit.EmptyWeek
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, title, weekly_completion, streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.ID, h.UserID, h.Title, h.WeeklyCompletion, h.Streak, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return habit.Habit{}, storeErr("create habit", err)
	}
	return h, nil
}

func (s *Store) UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	h.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE habits
		SET title = $2, weekly_completion = $3, streak = $4, updated_at = $5
		WHERE id = $1
	`, h.ID, h.Title, h.WeeklyCompletion, h.Streak, h.UpdatedAt)
	if err != nil {
		return habit.Habit{}, storeErr("update habit", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return habit.Habit{}, apperrors.NotFound("habit %s not found", h.ID)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (habit.Habit, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, weekly_completion, streak, created_at, updated_at
		FROM habits WHERE id = $1
	`, id)

	var h habit.Habit
	err := row.Scan(&h.ID, &h.UserID, &h.Title, &h.WeeklyCompletion, &h.Streak, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, apperrors.NotFound("habit %s not found", id)
	}
	if err != nil {
		return habit.Habit{}, storeErr("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]habit.Habit, error) {
	return s.queryHabits(ctx, `
		SELECT id, user_id, title, weekly_completion, streak, created_at, updated_at
		FROM habits WHERE user_id = $1 ORDER BY created_at
	`, userID)
}

func (s *Store) ListAllHabits(ctx context.Context) ([]habit.Habit, error) {
	return s.queryHabits(ctx, `
		SELECT id, user_id, title, weekly_completion, streak, created_at, updated_at
		FROM habits ORDER BY created_at
	`)
}

func (s *Store) queryHabits(ctx context.Context, query string, args ...any) ([]habit.Habit, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list habits", err)
	}
	defer rows.Close()

	var result []habit.Habit
	for rows.Next() {
		var h habit.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Title, &h.WeeklyCompletion, &h.Streak, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, storeErr("scan habit", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete habit", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("habit %s not found", id)
	}
	return nil
}

// --- EventStore -------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = time.Now().UTC()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO events (id, user_id, title, date, time, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.UserID, ev.Title, ev.Date, ev.Time, ev.Category, ev.CreatedAt)
	if err != nil {
		return event.Event{}, storeErr("create event", err)
	}
	return ev, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (event.Event, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, date, time, category, created_at FROM events WHERE id = $1
	`, id)

	var ev event.Event
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Date, &ev.Time, &ev.Category, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, apperrors.NotFound("event %s not found", id)
	}
	if err != nil {
		return event.Event{}, storeErr("get event", err)
	}
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context, userID string) ([]event.Event, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, title, date, time, category, created_at
		FROM events WHERE user_id = $1
		ORDER BY date, time
	`, userID)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	var result []event.Event
	for rows.Next() {
		var ev event.Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Date, &ev.Time, &ev.Category, &ev.CreatedAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("event %s not found", id)
	}
	return nil
}

// --- FriendshipStore --------------------------------------------------------

func (s *Store) CreateFriendship(ctx context.Context, f friendship.Friendship) (friendship.Friendship, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO friendships (id, user_id, friend_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.UserID, f.FriendID, f.Status, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return friendship.Friendship{}, storeErr("create friendship", err)
	}
	return f, nil
}

func (s *Store) UpdateFriendship(ctx context.Context, f friendship.Friendship) (friendship.Friendship, error) {
	f.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE friendships SET status = $3, updated_at = $4
		WHERE user_id = $1 AND friend_id = $2
	`, f.UserID, f.FriendID, f.Status, f.UpdatedAt)
	if err != nil {
		return friendship.Friendship{}, storeErr("update friendship", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return friendship.Friendship{}, apperrors.NotFound("friendship %s/%s not found", f.UserID, f.FriendID)
	}
	return f, nil
}

func (s *Store) GetFriendship(ctx context.Context, userID, friendID string) (friendship.Friendship, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friendships WHERE user_id = $1 AND friend_id = $2
	`, userID, friendID)

	var f friendship.Friendship
	err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return friendship.Friendship{}, apperrors.NotFound("friendship %s/%s not found", userID, friendID)
	}
	if err != nil {
		return friendship.Friendship{}, storeErr("get friendship", err)
	}
	return f, nil
}

func (s *Store) ListFriendships(ctx context.Context, userID, status string) ([]friendship.Friendship, error) {
	query := `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friendships WHERE user_id = $1
	`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list friendships", err)
	}
	defer rows.Close()

	var result []friendship.Friendship
	for rows.Next() {
		var f friendship.Friendship
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, storeErr("scan friendship", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, sender, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, n.Sender, n.Title, n.Message, n.Type, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, storeErr("create notification", err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, sender, title, message, type, read, created_at
		FROM notifications WHERE id = $1
	`, id)

	var n notification.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Sender, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Notification{}, apperrors.NotFound("notification %s not found", id)
	}
	if err != nil {
		return notification.Notification{}, storeErr("get notification", err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, sender, title, message, type, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	defer rows.Close()

	var result []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Sender, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, storeErr("scan notification", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return storeErr("mark notification read", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("notification %s not found", id)
	}
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete notification", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("notification %s not found", id)
	}
	return nil
}

func (s *Store) ClearNotifications(ctx context.Context, userID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID); err != nil {
		return storeErr("clear notifications", err)
	}
	return nil
}

// --- MessageStore -----------------------------------------------------------

func (s *Store) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO messages (id, sender, receiver, text, file_url, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Sender, m.Receiver, m.Text, m.FileURL, m.Timestamp)
	if err != nil {
		return message.Message{}, storeErr("create message", err)
	}
	return m, nil
}

func (s *Store) ListConversation(ctx context.Context, userA, userB string) ([]message.Message, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, sender, receiver, text, file_url, timestamp
		FROM messages
		WHERE (sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1)
		ORDER BY timestamp
	`, userA, userB)
	if err != nil {
		return nil, storeErr("list conversation", err)
	}
	defer rows.Close()

	var result []message.Message
	for rows.Next() {
		var m message.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Text, &m.FileURL, &m.Timestamp); err != nil {
			return nil, storeErr("scan message", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
