// Package repomanager opens the configured store driver and vends its
// repositories together with the driver's lifecycle hooks.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
)

type RepositoryManager interface {
	// RunMigrations brings the schema up to date. Schemaless drivers do nothing.
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Accounts() accounts.Repository
	Close() error
}

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseDSN)
	case config.StoreDriverRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StoreDriverMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
