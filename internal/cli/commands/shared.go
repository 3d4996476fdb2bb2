// Package commands holds the orchestron CLI's Cobra subcommands, split
// one file per command the way internal/cli/commands is laid out in
// bartekus-stagecraft (that repo's cobra CLI, not the teacher's plain
// core/cmd/example/main.go, is what this package's structure is
// grounded on — the teacher ships a library, not a CLI).
package commands

import (
	"context"
	"fmt"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/logging"
	"github.com/itsneelabh/orchestron/pkg/memory"
)

// bootstrap bundles the collaborators every subcommand needs: the loaded
// config, a root logger, and the long-term store (Postgres or in-memory,
// picked by memory.NewStoreFromConfig).
type bootstrap struct {
	Config *config.Config
	Logger logging.Logger
	Store  memory.Store
}

func newBootstrap(ctx context.Context) (*bootstrap, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logFilePath := ""
	if cfg.LogToFile {
		logFilePath = cfg.LogsDir + "/orchestron.log"
	}
	logger, err := logging.NewStructuredLogger(cfg.AppName, logFilePath)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	store, err := memory.NewStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect long-term store: %w", err)
	}
	return &bootstrap{Config: cfg, Logger: logger, Store: store}, nil
}
