package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage"
	apperrors "github.com/flowstate/backend/internal/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return New(db), mock
}

func userRows(u user.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "avatar_url",
		"level", "xp", "total_focus_hours", "daily_stats", "created_at", "updated_at",
	}).AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarURL,
		u.Level, u.XP, u.TotalFocusHours, []byte(`{"2026-03-09":1.5}`), time.Now(), time.Now())
}

func TestGetUserScansDailyStats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(userRows(user.User{ID: "u1", Username: "ada", Level: 2, XP: 50}))

	u, err := store.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Username != "ada" || u.Level != 2 {
		t.Fatalf("user = %+v", u)
	}
	if u.DailyStats["2026-03-09"] != 1.5 {
		t.Fatalf("daily stats = %v", u.DailyStats)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateUser(context.Background(), user.User{ID: "ghost"})
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateUserDuplicateMapsToConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateUser(context.Background(), user.User{Username: "ada"})
	if !apperrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM notifications WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(tx storage.Store) error {
		return tx.ClearNotifications(context.Background(), "u1")
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	want := fmt.Errorf("boom")
	err := store.Atomic(context.Background(), func(storage.Store) error {
		return want
	})
	if err != want {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestNestedAtomicSharesTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	// One begin/commit pair even with a nested Atomic call.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM notifications WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Atomic(context.Background(), func(tx storage.Store) error {
		return tx.Atomic(context.Background(), func(inner storage.Store) error {
			return inner.ClearNotifications(context.Background(), "u1")
		})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
}

func TestListConversationIsSymmetric(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "sender", "receiver", "text", "file_url", "timestamp"}).
		AddRow("m1", "ada", "grace", "first", "", time.Now()).
		AddRow("m2", "grace", "ada", "second", "", time.Now())

	mock.ExpectQuery(`FROM messages`).
		WithArgs("ada", "grace").
		WillReturnRows(rows)

	msgs, err := store.ListConversation(context.Background(), "ada", "grace")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "first" {
		t.Fatalf("msgs = %+v", msgs)
	}
}
