package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies хранит внешние ресурсы, которые нужно закрыть при остановке.
type runtimeDependencies struct {
	blobs   domain.BlobStore
	closers []func() error
}

// initRuntimeDependencies открывает выбранное хранилище блобов.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{}

	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		deps.blobs = memory.NewBlobStore()
		logger.Info("using in-memory blob storage")

	case StorageDriverRedis:
		client, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		deps.blobs = redisstore.NewBlobStore(client, cfg.RedisPrefix)
		deps.closers = append(deps.closers, client.Close)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis blob storage")

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires postgres_dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.blobs = postgres.NewBlobStore(store)
		deps.closers = append(deps.closers, store.Close)
		logger.Info("using postgres blob storage")

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	return deps, nil
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *runtimeDependencies) Close(logger *log.Entry) {
	if d == nil {
		return
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}
	d.closers = nil
}
