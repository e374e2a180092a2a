package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/task"
	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage"
	apperrors "github.com/flowstate/backend/internal/errors"
)

func TestCreateUserCaseInsensitiveConflict(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, user.User{Username: "Ada"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{Username: "ada"}); !apperrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	u, err := store.GetUserByUsername(ctx, "ADA")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Username != "Ada" {
		t.Fatalf("username = %q, original casing lost", u.Username)
	}
}

func TestUpdateUserPreservesUsername(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, _ := store.CreateUser(ctx, user.User{Username: "ada"})
	created.Username = "hacked"
	created.XP = 500

	updated, err := store.UpdateUser(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "ada" {
		t.Fatalf("username = %q, must be immutable", updated.Username)
	}
	if updated.XP != 500 {
		t.Fatalf("xp = %d, want 500", updated.XP)
	}
}

func TestAtomicRollsBackEverything(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Username: "ada"})

	err := store.Atomic(ctx, func(tx storage.Store) error {
		if _, err := tx.CreateTask(ctx, task.Task{UserID: u.ID, Title: "doomed"}); err != nil {
			return err
		}
		if _, err := tx.CreateNotification(ctx, notification.Notification{UserID: u.ID, Title: "doomed"}); err != nil {
			return err
		}
		mutated, err := tx.GetUser(ctx, u.ID)
		if err != nil {
			return err
		}
		mutated.XP = 999
		if _, err := tx.UpdateUser(ctx, mutated); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatal("expected fn error to surface")
	}

	// None of the transactional writes are visible.
	tasks, _ := store.ListTasks(ctx, u.ID)
	notifs, _ := store.ListNotifications(ctx, u.ID)
	after, _ := store.GetUser(ctx, u.ID)
	if len(tasks) != 0 || len(notifs) != 0 || after.XP != 0 {
		t.Fatalf("rollback leaked: tasks=%d notifs=%d xp=%d", len(tasks), len(notifs), after.XP)
	}
}

func TestAtomicCommitsEverything(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Username: "ada"})

	err := store.Atomic(ctx, func(tx storage.Store) error {
		if _, err := tx.CreateTask(ctx, task.Task{UserID: u.ID, Title: "kept"}); err != nil {
			return err
		}
		mutated, err := tx.GetUser(ctx, u.ID)
		if err != nil {
			return err
		}
		mutated.XP = 150
		_, err = tx.UpdateUser(ctx, mutated)
		return err
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}

	tasks, _ := store.ListTasks(ctx, u.ID)
	after, _ := store.GetUser(ctx, u.ID)
	if len(tasks) != 1 || after.XP != 150 {
		t.Fatalf("commit lost writes: tasks=%d xp=%d", len(tasks), after.XP)
	}
}

func TestAtomicDoesNotDiscardConcurrentWrites(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Username: "ada"})

	entered := make(chan struct{})
	release := make(chan struct{})
	committed := make(chan error, 1)
	go func() {
		committed <- store.Atomic(ctx, func(tx storage.Store) error {
			close(entered)
			<-release
			_, err := tx.CreateTask(ctx, task.Task{UserID: u.ID, Title: "inside tx"})
			return err
		})
	}()
	<-entered

	// A direct write racing the open transaction must block until the
	// commit settles and then land, not be overwritten by the snapshot.
	wrote := make(chan error, 1)
	go func() {
		_, err := store.CreateNotification(ctx, notification.Notification{UserID: u.ID, Title: "outside tx"})
		wrote <- err
	}()

	select {
	case err := <-wrote:
		t.Fatalf("direct write interleaved with open transaction: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-committed; err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if err := <-wrote; err != nil {
		t.Fatalf("concurrent write: %v", err)
	}

	tasks, _ := store.ListTasks(ctx, u.ID)
	notifs, _ := store.ListNotifications(ctx, u.ID)
	if len(tasks) != 1 {
		t.Fatalf("transaction write lost: tasks=%d", len(tasks))
	}
	if len(notifs) != 1 {
		t.Fatalf("concurrent write lost: notifs=%d", len(notifs))
	}
}

func TestSubTaskReplacementIsWholesale(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateTask(ctx, task.Task{
		UserID:   "u1",
		Title:    "plan",
		SubTasks: []task.SubTask{{Title: "one"}, {Title: "two"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.SubTasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(created.SubTasks))
	}

	if err := store.ReplaceSubTasks(ctx, created.ID, []task.SubTask{{Title: "only"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := store.GetTask(ctx, created.ID)
	if len(got.SubTasks) != 1 || got.SubTasks[0].Title != "only" {
		t.Fatalf("subtasks = %+v", got.SubTasks)
	}
	if got.SubTasks[0].TaskID != created.ID {
		t.Fatalf("subtask parent = %q", got.SubTasks[0].TaskID)
	}
}

func TestSearchUsersLimit(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := store.CreateUser(ctx, user.User{Username: fmt.Sprintf("player%02d", i)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	result, err := store.SearchUsers(ctx, "player", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result) != 10 {
		t.Fatalf("results = %d, want 10", len(result))
	}
}
