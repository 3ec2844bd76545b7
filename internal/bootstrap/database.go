package bootstrap

import (
	"context"
	"fmt"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/store"
)

// initializeDatabase opens the store, runs migrations and, on postgres,
// installs the row-level security policies. Bounded by DBInitTimeout so a
// dead database fails startup instead of hanging it.
func initializeDatabase(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, cfg.DBInitTimeout)
	defer cancel()

	db, err := store.New(initCtx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
