package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GregMSThompson/finance-tracker/internal/config"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/internal/store/memory"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

type Bootstrap struct {
	Log   *slog.Logger
	Store store.Store
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	applicationCtx = logger.ToContext(applicationCtx, bs.Log)

	switch cfg.Store {
	case config.StoreFirestore:
		fs, err := InitFirestore(applicationCtx, cfg.ProjectID)
		if err != nil {
			return bs, fmt.Errorf("init firestore store: %w", err)
		}
		bs.Store = fs
	case config.StorePostgres:
		pg, err := InitPostgres(applicationCtx, cfg)
		if err != nil {
			return bs, fmt.Errorf("init postgres store: %w", err)
		}
		bs.Store = pg
	default:
		bs.Store = memory.New()
	}
	bs.Log.Info("store ready", "store", cfg.Store)

	return bs, nil
}

func (bs *Bootstrap) Close() error {
	if bs.Store == nil {
		return nil
	}
	return bs.Store.Close()
}
