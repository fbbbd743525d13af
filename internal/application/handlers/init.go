// Package handlers contains application use case handlers. Handlers accept
// loosely typed input from the CLI and HTTP layers, convert it to domain
// values and call the services.
package handlers

import (
	"context"
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
)

// InitHandler handles workspace initialization.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath  string
	Driver      string
	StoragePath string
}

// Handle writes the default configuration into basePath.
func (h *InitHandler) Handle(_ context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("familytree already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	storagePath := cfg.Storage.SQLite.Path
	if cfg.Storage.Driver == config.DriverBadger {
		storagePath = cfg.Storage.Badger.Path
	}

	return &InitResult{
		ConfigPath:  config.ConfigFilePath(basePath),
		Driver:      cfg.Storage.Driver,
		StoragePath: config.ResolvePath(basePath, storagePath),
	}, nil
}

// Prepare creates the storage schema and, when search is enabled, the
// member collection.
func (h *InitHandler) Prepare(ctx context.Context, repo ports.TreeRepository, search *services.SearchService) error {
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	if err := search.EnsureReady(ctx); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}
