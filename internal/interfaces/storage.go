// Package interfaces defines storage contracts for QCTrack
package interfaces

import (
	"context"

	"github.com/htmmed/qctrack/internal/models"
)

// StorageManager coordinates the document store collections.
type StorageManager interface {
	Reports() ReportStore
	Products() ProductStore
	Settings() SettingsStore
	Users() UserStore

	// Lifecycle
	Close() error
}

// ReportStore holds the authoritative defect-report collection.
//
// Get returns (nil, nil) when the id does not exist. Update and BatchUpdate
// are last-write-wins partial patches; BatchUpdate is atomic as a whole.
// AppendActivity has array-union semantics so concurrent appends merge
// instead of clobbering each other.
type ReportStore interface {
	Create(ctx context.Context, report *models.DefectReport) error
	Get(ctx context.Context, id string) (*models.DefectReport, error)
	// List returns every report ordered by creation time descending.
	List(ctx context.Context) ([]*models.DefectReport, error)
	Update(ctx context.Context, id string, patch models.ReportPatch) error
	// Replace overwrites the full record (full-form edit path).
	Replace(ctx context.Context, report *models.DefectReport) error
	Delete(ctx context.Context, id string) error
	BatchUpdate(ctx context.Context, ids []string, patch models.ReportPatch) (int, error)
	AppendActivity(ctx context.Context, id string, entries ...models.ActivityEntry) error
}

// ProductStore holds the externally managed product catalog.
type ProductStore interface {
	Upsert(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, productCode string) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	Delete(ctx context.Context, productCode string) error
	// BulkUpsert writes an imported catalog batch, returning the count written.
	BulkUpsert(ctx context.Context, products []*models.Product) (int, error)
}

// SettingsStore holds the two singleton settings documents. Each is loaded
// and saved wholesale; there is no partial-field update.
type SettingsStore interface {
	GetRoleTable(ctx context.Context) (*models.RoleTable, error)
	SaveRoleTable(ctx context.Context, table *models.RoleTable) error
	GetAppearance(ctx context.Context) (*models.AppearanceSettings, error)
	SaveAppearance(ctx context.Context, settings *models.AppearanceSettings) error
}

// UserStore holds credential records.
type UserStore interface {
	Get(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]*models.User, error)
}
