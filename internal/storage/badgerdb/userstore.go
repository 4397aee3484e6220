package badgerdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

type userStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.UserStore = (*userStore)(nil)

func (s *userStore) Get(_ context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.Get(username, &user)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return &user, nil
}

func (s *userStore) Save(_ context.Context, user *models.User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	var existing models.User
	if err := s.db.Get(user.Username, &existing); err == nil {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.ModifiedAt = time.Now().UTC()

	if err := s.db.Upsert(user.Username, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.Username, err)
	}
	s.logger.Debug().Str("username", user.Username).Str("role", user.Role).Msg("User saved")
	return nil
}

func (s *userStore) Delete(_ context.Context, username string) error {
	err := s.db.Delete(username, models.User{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("user %s not found", username)
	}
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	return nil
}

func (s *userStore) List(_ context.Context) ([]*models.User, error) {
	var users []models.User
	if err := s.db.Find(&users, nil); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	out := make([]*models.User, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out, nil
}
