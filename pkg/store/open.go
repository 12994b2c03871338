package store

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-mapeditor/pkg/config"
)

// Open builds the backend selected by cfg.Backend
func Open(ctx context.Context, cfg config.StoreConfig) (DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.File.Dir)
	case config.BackendS3:
		return NewS3Store(ctx, cfg.S3)
	case config.BackendPostgres:
		return NewPGStore(ctx, cfg.Postgres.URL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
