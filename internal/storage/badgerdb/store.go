// Package badgerdb implements the document store on an embedded
// BadgerHold database for single-node and test deployments.
package badgerdb

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
)

// Manager owns the BadgerHold database and hands out collection stores.
type Manager struct {
	db     *badgerhold.Store
	logger *common.Logger

	reports  *reportStore
	products *productStore
	settings *settingsStore
	users    *userStore
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager opens (or creates) the database at the given directory.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Embedded store opened")

	m := &Manager{db: db, logger: logger}
	m.reports = &reportStore{db: db, logger: logger}
	m.products = &productStore{db: db, logger: logger}
	m.settings = &settingsStore{db: db, logger: logger}
	m.users = &userStore{db: db, logger: logger}
	return m, nil
}

func (m *Manager) Reports() interfaces.ReportStore    { return m.reports }
func (m *Manager) Products() interfaces.ProductStore  { return m.products }
func (m *Manager) Settings() interfaces.SettingsStore { return m.settings }
func (m *Manager) Users() interfaces.UserStore        { return m.users }

// Close shuts the underlying database.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
