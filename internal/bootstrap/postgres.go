package bootstrap

import (
	"context"
	"errors"

	"github.com/GregMSThompson/finance-tracker/internal/config"
	"github.com/GregMSThompson/finance-tracker/internal/store/postgres"
)

// InitPostgres connects to the database named by DATABASE_URL, or by the
// secret in DATABASE_URL_SECRET when set, and applies pending migrations.
func InitPostgres(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	dsn, err := DatabaseURL(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}

	s, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// DatabaseURL resolves the connection string. A nil accessor dials Secret
// Manager on demand.
func DatabaseURL(ctx context.Context, cfg *config.Config, secrets SecretAccessor) (string, error) {
	if cfg.DatabaseURLSecret == "" {
		if cfg.DatabaseURL == "" {
			return "", errors.New("DATABASE_URL or DATABASE_URL_SECRET is required")
		}
		return cfg.DatabaseURL, nil
	}

	if secrets == nil {
		client, err := newSecretManager(ctx, cfg.ProjectID)
		if err != nil {
			return "", err
		}
		defer client.Close()
		secrets = client
	}
	return secrets.Secret(ctx, cfg.DatabaseURLSecret)
}
