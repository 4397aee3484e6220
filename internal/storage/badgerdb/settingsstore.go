package badgerdb

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

// Singleton document keys.
const (
	keyRoleTable  = "role_table"
	keyAppearance = "appearance"
)

type settingsStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.SettingsStore = (*settingsStore)(nil)

// GetRoleTable loads the permission table, falling back to the built-in
// defaults when none has been saved yet.
func (s *settingsStore) GetRoleTable(_ context.Context) (*models.RoleTable, error) {
	var table models.RoleTable
	err := s.db.Get(keyRoleTable, &table)
	if err == badgerhold.ErrNotFound {
		return models.DefaultRoleTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role table: %w", err)
	}
	return &table, nil
}

func (s *settingsStore) SaveRoleTable(_ context.Context, table *models.RoleTable) error {
	table.UpdatedAt = time.Now().UTC()
	if err := s.db.Upsert(keyRoleTable, table); err != nil {
		return fmt.Errorf("failed to save role table: %w", err)
	}
	s.logger.Debug().Str("updated_by", table.UpdatedBy).Msg("Role table saved")
	return nil
}

// GetAppearance loads branding settings, falling back to defaults.
func (s *settingsStore) GetAppearance(_ context.Context) (*models.AppearanceSettings, error) {
	var settings models.AppearanceSettings
	err := s.db.Get(keyAppearance, &settings)
	if err == badgerhold.ErrNotFound {
		return models.DefaultAppearanceSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appearance settings: %w", err)
	}
	return &settings, nil
}

func (s *settingsStore) SaveAppearance(_ context.Context, settings *models.AppearanceSettings) error {
	if err := s.db.Upsert(keyAppearance, settings); err != nil {
		return fmt.Errorf("failed to save appearance settings: %w", err)
	}
	return nil
}
