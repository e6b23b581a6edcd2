package database

import (
	"context"
	"fmt"
	"time"

	"github.com/satyamkes/JanSahyog/internal/config"
	"github.com/satyamkes/JanSahyog/internal/models"
)

// Store is a scheme catalog backend.
type Store interface {
	CreateScheme(ctx context.Context, scheme models.Scheme) (models.Scheme, error)
	GetScheme(ctx context.Context, id string) (models.Scheme, error)
	ListActiveSchemes(ctx context.Context) ([]models.Scheme, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MongoStore)(nil)
)

// Open connects to the catalog backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		db, err := NewDB(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
