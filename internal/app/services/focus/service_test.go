package focus

import (
	"context"
	"testing"
	"time"

	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage/memory"
	"github.com/flowstate/backend/internal/errors"
)

func TestTrackAccumulates(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	fixed := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Username: "ada"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.Track(ctx, u.ID, 1.5); err != nil {
		t.Fatalf("track: %v", err)
	}
	updated, err := svc.Track(ctx, u.ID, 0.5)
	if err != nil {
		t.Fatalf("track again: %v", err)
	}

	if updated.TotalFocusHours != 2.0 {
		t.Fatalf("total = %f, want 2.0", updated.TotalFocusHours)
	}
	if got := updated.DailyStats["2026-03-09"]; got != 2.0 {
		t.Fatalf("daily = %f, want 2.0", got)
	}
}

func TestTrackRejectsNonPositive(t *testing.T) {
	svc := New(memory.New(), nil)
	for _, hours := range []float64{0, -1} {
		if _, err := svc.Track(context.Background(), "u1", hours); !errors.Is(err, errors.ErrValidation) {
			t.Fatalf("hours %f: err = %v, want validation", hours, err)
		}
	}
}

func TestTrackUnknownUser(t *testing.T) {
	svc := New(memory.New(), nil)
	if _, err := svc.Track(context.Background(), "ghost", 1); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
