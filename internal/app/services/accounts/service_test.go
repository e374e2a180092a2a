package accounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowstate/backend/internal/app/domain/habit"
	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage/memory"
	"github.com/flowstate/backend/internal/auth"
	"github.com/flowstate/backend/internal/errors"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return New(store, store, tokens, nil), store
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "ada", "s3cret", "ada@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Level != 1 {
		t.Fatalf("level = %d, want 1", created.Level)
	}

	stored, err := store.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PasswordHash == "s3cret" {
		t.Fatal("password stored in plaintext")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("hash = %q, want bcrypt", stored.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")) != nil {
		t.Fatal("hash does not verify against the original password")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada", "pw", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// Case-insensitive collision.
	if _, err := svc.Register(ctx, "ADA", "pw", ""); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "pw", ""); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("blank username: err = %v, want validation", err)
	}
	if _, err := svc.Register(ctx, "ada", "", ""); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("blank password: err = %v, want validation", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "ada", "s3cret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	u, token, err := svc.Login(ctx, "Ada", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("logged in as %s, want %s", u.ID, created.ID)
	}

	claims, err := auth.NewTokenManager("test-secret", time.Hour).Validate(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != created.ID || claims.Username != "ada" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada", "s3cret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, wrongPassword := svc.Login(ctx, "ada", "nope")
	_, _, unknownUser := svc.Login(ctx, "ghost", "nope")

	for name, err := range map[string]error{"wrong password": wrongPassword, "unknown user": unknownUser} {
		if !errors.Is(err, errors.ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want unauthorized", name, err)
		}
		if err.Error() != "invalid credentials" {
			t.Fatalf("%s: message = %q leaks detail", name, err.Error())
		}
	}
}

func TestGetProfileBuildsHabitRadar(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "ada", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.CreateHabit(ctx, habit.Habit{UserID: created.ID, Title: "read", WeeklyCompletion: "1111000"}); err != nil {
		t.Fatalf("create habit: %v", err)
	}

	profile, err := svc.GetProfile(ctx, created.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(profile.HabitRadar) != 1 {
		t.Fatalf("radar points = %d, want 1", len(profile.HabitRadar))
	}
	p := profile.HabitRadar[0]
	if p.Subject != "read" {
		t.Fatalf("subject = %q", p.Subject)
	}
	// 4 of 7 days.
	want := 4.0 / 7.0 * 100
	if p.Percent < want-0.01 || p.Percent > want+0.01 {
		t.Fatalf("percent = %f, want ~%f", p.Percent, want)
	}
	if profile.DailyStats == nil {
		t.Fatal("daily stats must never be nil in the projection")
	}
}

func TestMigratePlaintextPasswords(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// One legacy plaintext row, one already hashed, one passwordless.
	legacy, _ := store.CreateUser(ctx, user.User{Username: "legacy", PasswordHash: "oldpw"})
	if _, err := svc.Register(ctx, "modern", "pw", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{Username: "oauth"}); err != nil {
		t.Fatalf("create oauth user: %v", err)
	}

	migrated, err := svc.MigratePlaintextPasswords(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if migrated != 1 {
		t.Fatalf("migrated = %d, want 1", migrated)
	}

	got, _ := store.GetUser(ctx, legacy.ID)
	if !strings.HasPrefix(got.PasswordHash, "$2") {
		t.Fatalf("legacy hash = %q, want bcrypt", got.PasswordHash)
	}
	// The migrated credential still verifies.
	if _, _, err := svc.Login(ctx, "legacy", "oldpw"); err != nil {
		t.Fatalf("login after migration: %v", err)
	}

	// Idempotent: a second run has nothing to do.
	again, err := svc.MigratePlaintextPasswords(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second run = %d, %v, want 0, nil", again, err)
	}
}
