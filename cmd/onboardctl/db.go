package main

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
)

// openStore connects to the configured postgres database. The memory store
// lives inside the server process, so there is nothing for the CLI to reach.
func openStore() (*repository.Store, error) {
	cfg := config.Load()
	if cfg.StorageMode != config.StorageModePostgres {
		return nil, fmt.Errorf("onboardctl needs STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return repository.NewGormStore(database.DB), nil
}
