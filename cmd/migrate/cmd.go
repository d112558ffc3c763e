package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/GregMSThompson/finance-tracker/internal/bootstrap"
	"github.com/GregMSThompson/finance-tracker/internal/config"
	"github.com/GregMSThompson/finance-tracker/internal/store/postgres"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

// migrate applies the embedded Postgres migrations and exits, for deploys
// that run schema changes ahead of the api.
func main() {
	cfg := config.New()
	log := logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	ctx := logger.ToContext(context.Background(), log)

	dsn, err := bootstrap.DatabaseURL(ctx, cfg, nil)
	exitOnError("resolve database url failed", err, log)

	s, err := postgres.Open(ctx, dsn)
	exitOnError("connect failed", err, log)
	defer s.Close()

	err = s.Migrate(ctx)
	exitOnError("migrate failed", err, log)
	log.Info("migrations complete")
}
