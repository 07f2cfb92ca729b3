// cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unclebandit/audience-campaigns/internal/config"
	"github.com/unclebandit/audience-campaigns/internal/db"
	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

// bootstrap loads configuration, installs the logger and seeds the id node.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.Setup(cfg)
	if err := id.Init(cfg.NodeID); err != nil {
		return config.Config{}, nil, fmt.Errorf("init id node: %w", err)
	}
	return cfg, log, nil
}

// openStore returns the repositories for STORE_DRIVER and a closer for any
// underlying connection.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Repositories, func() error, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemory(), func() error { return nil }, nil
	}

	conn, err := db.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return repository.Repositories{}, nil, err
	}
	return repository.NewPostgres(conn), conn.Close, nil
}
