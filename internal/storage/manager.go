// Package storage selects the document store backend from configuration.
package storage

import (
	"fmt"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/storage/badgerdb"
	"github.com/htmmed/qctrack/internal/storage/surrealdb"
)

// NewManager builds the storage manager for the configured backend:
// "surrealdb" for shared deployments, "embedded" for single-node and
// test runs.
func NewManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Backend {
	case common.BackendSurrealDB:
		return surrealdb.NewManager(logger, config)
	case common.BackendEmbedded, "":
		return badgerdb.NewManager(logger, config.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}
