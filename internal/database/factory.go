package database

import (
	"fmt"

	"mediaplayer/internal/config"
	"mediaplayer/internal/media"
)

// NewStoreFromConfig creates a ShareStore based on the configured store
// type. The sqlite store is created, along with missing parent
// directories, if it does not exist yet.
func NewStoreFromConfig(cfg *config.Config, clock media.Clock, tokens media.TokenSource) (media.ShareStore, error) {
	switch cfg.DatabaseType {
	case "", "sqlite":
		if cfg.Database == "" {
			return nil, fmt.Errorf("database path required for sqlite store")
		}
		return NewSQLiteStore(cfg.Database, clock, tokens)
	case "memory":
		return NewSQLiteStore(":memory:", clock, tokens)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.DatabaseType)
	}
}
