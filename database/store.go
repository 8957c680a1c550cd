package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mbolis/santas-scanner/config"
	"github.com/mbolis/santas-scanner/model"
)

// DefaultLimit caps leaderboard queries that do not ask for a positive limit.
const DefaultLimit = 100

// ResultStore persists scan results. Implementations validate candidates
// before writing and are safe for concurrent use.
type ResultStore interface {
	// Connect is idempotent. Insert and QueryTop call it on demand.
	Connect(ctx context.Context) error
	Insert(ctx context.Context, candidate model.ScanCandidate) (model.ScanResult, error)
	QueryTop(ctx context.Context, limit int) ([]model.ScanResult, error)
	Close(ctx context.Context) error
}

// Open builds the configured store and connects it, so that a broken
// store is reported before any traffic is served.
func Open(ctx context.Context, cfg config.Config) (store ResultStore, err error) {
	switch cfg.Store {
	case config.StoreMongo:
		store = NewMongoStore(MongoOptions{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			Collection:     cfg.MongoCollection,
			ConnectTimeout: cfg.ConnectTimeout,
			OpTimeout:      cfg.OpTimeout,
		})
	case config.StoreSQLite:
		store = NewSQLiteStore(cfg.SQLitePath, cfg.OpTimeout)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if err = store.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s store: %w", cfg.Store, err)
	}
	return store, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
