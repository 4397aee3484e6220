package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

const userSelectFields = `username, name, password, role, created_at, modified_at`

const userSetClause = `username = $username, name = $name, password = $password,
	role = $role, created_at = $created_at, modified_at = $modified_at`

// UserStore implements interfaces.UserStore using SurrealDB.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.UserStore = (*UserStore)(nil)

// NewUserStore creates a new UserStore.
func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{db: db, logger: logger}
}

func (s *UserStore) Get(ctx context.Context, username string) (*models.User, error) {
	sql := "SELECT " + userSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("app_user", username),
	}

	results, err := surrealdb.Query[[]models.User](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}

	existing, err := s.Get(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.ModifiedAt = time.Now().UTC()

	sql := "UPSERT $rid SET " + userSetClause
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID("app_user", user.Username),
		"username":    user.Username,
		"name":        user.Name,
		"password":    user.Password,
		"role":        user.Role,
		"created_at":  user.CreatedAt,
		"modified_at": user.ModifiedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.Username, err)
	}
	s.logger.Debug().Str("username", user.Username).Str("role", user.Role).Msg("User saved")
	return nil
}

func (s *UserStore) Delete(ctx context.Context, username string) error {
	existing, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("user %s not found", username)
	}

	if _, err := surrealdb.Delete[models.User](ctx, s.db, surrealmodels.NewRecordID("app_user", username)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	return nil
}

func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	sql := "SELECT " + userSelectFields + " FROM app_user ORDER BY username ASC"

	results, err := surrealdb.Query[[]models.User](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			users = append(users, &(*results)[0].Result[i])
		}
	}
	return users, nil
}
