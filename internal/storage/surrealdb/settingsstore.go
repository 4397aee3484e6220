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

// Singleton record keys in the settings table.
const (
	keyRoleTable  = "role_table"
	keyAppearance = "appearance"
)

// SettingsStore implements interfaces.SettingsStore using SurrealDB.
// Each settings document is one record holding the whole document under a
// value field, saved wholesale.
type SettingsStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(db *surrealdb.DB, logger *common.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: logger}
}

func (s *SettingsStore) save(ctx context.Context, key string, value any) error {
	sql := "UPSERT $rid SET value = $value, updated_at = $now"
	vars := map[string]any{
		"rid":   surrealmodels.NewRecordID("settings", key),
		"value": value,
		"now":   time.Now().UTC(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save settings %s: %w", key, err)
	}
	return nil
}

type roleTableRecord struct {
	Value models.RoleTable `json:"value"`
}

func (s *SettingsStore) GetRoleTable(ctx context.Context) (*models.RoleTable, error) {
	sql := "SELECT value FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("settings", keyRoleTable),
	}

	results, err := surrealdb.Query[[]roleTableRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return models.DefaultRoleTable(), nil
		}
		return nil, fmt.Errorf("failed to get role table: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.DefaultRoleTable(), nil
	}
	table := (*results)[0].Result[0].Value
	if table.Roles == nil {
		return models.DefaultRoleTable(), nil
	}
	return &table, nil
}

func (s *SettingsStore) SaveRoleTable(ctx context.Context, table *models.RoleTable) error {
	table.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, keyRoleTable, table); err != nil {
		return err
	}
	s.logger.Debug().Str("updated_by", table.UpdatedBy).Msg("Role table saved")
	return nil
}

type appearanceRecord struct {
	Value models.AppearanceSettings `json:"value"`
}

func (s *SettingsStore) GetAppearance(ctx context.Context) (*models.AppearanceSettings, error) {
	sql := "SELECT value FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("settings", keyAppearance),
	}

	results, err := surrealdb.Query[[]appearanceRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return models.DefaultAppearanceSettings(), nil
		}
		return nil, fmt.Errorf("failed to get appearance settings: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.DefaultAppearanceSettings(), nil
	}
	settings := (*results)[0].Result[0].Value
	if settings.CompanyName == "" {
		return models.DefaultAppearanceSettings(), nil
	}
	return &settings, nil
}

func (s *SettingsStore) SaveAppearance(ctx context.Context, settings *models.AppearanceSettings) error {
	return s.save(ctx, keyAppearance, settings)
}
