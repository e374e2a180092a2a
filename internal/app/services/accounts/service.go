// Package accounts manages user registration, authentication and profile
// state.
package accounts

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowstate/backend/internal/app/domain/user"
	"github.com/flowstate/backend/internal/app/storage"
	"github.com/flowstate/backend/internal/auth"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/pkg/logger"
)

// Service manages user accounts.
type Service struct {
	store  storage.UserStore
	habits storage.HabitStore
	tokens *auth.TokenManager
	log    *logger.Logger
}

// New constructs an account service.
func New(store storage.UserStore, habits storage.HabitStore, tokens *auth.TokenManager, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, habits: habits, tokens: tokens, log: log}
}

// Register creates a new account. The username must be unique
// (case-insensitive); duplicates yield a Conflict. Passwords are stored
// hashed, never in plaintext.
func (s *Service) Register(ctx context.Context, username, password, email string) (user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return user.User{}, errors.Validation("username is required")
	}
	if password == "" {
		return user.User{}, errors.Validation("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Store(err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Level:        1,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Login verifies credentials and issues a token. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (user.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return user.User{}, "", errors.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", errors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return user.User{}, "", errors.Store(err)
	}
	return u, token, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetByUsername returns a user by name, case-insensitively.
func (s *Service) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return s.store.GetUserByUsername(ctx, username)
}

// HabitRadarPoint is one axis of the profile's habit radar chart.
type HabitRadarPoint struct {
	Subject string  `json:"subject"`
	Percent float64 `json:"percent"`
}

// Profile is the public projection of an account.
type Profile struct {
	ID              string            `json:"id"`
	Username        string            `json:"username"`
	Email           string            `json:"email,omitempty"`
	AvatarURL       string            `json:"avatar_url,omitempty"`
	Level           int               `json:"level"`
	XP              int               `json:"xp"`
	TotalFocusHours float64           `json:"total_focus_hours"`
	DailyStats      user.DailyStats   `json:"daily_stats"`
	HabitRadar      []HabitRadarPoint `json:"habit_radar"`
}

// GetProfile builds the profile projection, including the per-habit
// weekly completion percentages.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	habits, err := s.habits.ListHabits(ctx, u.ID)
	if err != nil {
		return Profile{}, err
	}
	radar := make([]HabitRadarPoint, 0, len(habits))
	for _, h := range habits {
		radar = append(radar, HabitRadarPoint{Subject: h.Title, Percent: h.CompletionRatio() * 100})
	}

	stats := u.DailyStats
	if stats == nil {
		stats = user.DailyStats{}
	}
	return Profile{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		AvatarURL:       u.AvatarURL,
		Level:           u.Level,
		XP:              u.XP,
		TotalFocusHours: u.TotalFocusHours,
		DailyStats:      stats,
		HabitRadar:      radar,
	}, nil
}

// UpdateAvatar sets the user's avatar reference.
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatarURL string) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	u.AvatarURL = avatarURL
	return s.store.UpdateUser(ctx, u)
}

// Search returns up to limit users whose names contain the query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]user.User, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	return s.store.SearchUsers(ctx, query, limit)
}

// MigratePlaintextPasswords hashes any legacy rows whose credential field
// does not hold a bcrypt hash. One-time migration step; runtime
// verification never falls back to plaintext comparison.
func (s *Service) MigratePlaintextPasswords(ctx context.Context) (int, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	start := time.Now()
	for _, u := range users {
		if u.PasswordHash == "" || strings.HasPrefix(u.PasswordHash, "$2") {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			return migrated, errors.Store(err)
		}
		u.PasswordHash = string(hash)
		if _, err := s.store.UpdateUser(ctx, u); err != nil {
			return migrated, err
		}
		migrated++
	}

	if migrated > 0 {
		s.log.WithField("count", migrated).
			WithField("elapsed", time.Since(start)).
			Info("migrated plaintext passwords")
	}
	return migrated, nil
}
