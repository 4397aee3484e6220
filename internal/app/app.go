// Package app wires configuration, storage and services into one unit
// shared by the server binary and the handler tests.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/services/livesync"
	"github.com/htmmed/qctrack/internal/storage"
)

// App holds the initialized configuration, storage manager and live
// subscription hub.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Hub         *livesync.ReportHub
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration, opens storage and starts the live hub.
// configPath may be empty, in which case QCTRACK_CONFIG and the binary
// directory are tried in turn.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("QCTRACK_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "qctrack.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/qctrack.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative embedded-store path to the binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(getBinaryDir(), config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return newApp(config, logger, storageManager), nil
}

// NewAppWithStorage builds an App around an already open storage manager.
// Handler tests use it to run against the embedded backend.
func NewAppWithStorage(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	return newApp(config, logger, storageManager)
}

func newApp(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	hub := livesync.NewReportHub(logger)
	go hub.Run()

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Hub:         hub,
		StartupTime: time.Now(),
	}
}

// Close stops the hub and releases storage.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing storage")
		}
	}
}
