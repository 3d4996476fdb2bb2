package memory

import (
	"context"

	"github.com/itsneelabh/orchestron/pkg/config"
)

// NewStoreFromConfig picks PgStore when cfg.DatabaseURL is set, otherwise
// MemStore, so the CLI's demo/eval paths work without a live Postgres
// (SPEC_FULL §9's domain-stack note on the pgx dependency).
func NewStoreFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.DatabaseURL == "" {
		return NewMemStore(), nil
	}
	return NewPgStore(ctx, cfg.DatabaseURL)
}
