package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mkruijs/positionbot/internal/blob/s3"
	"github.com/mkruijs/positionbot/internal/cache/redis"
	"github.com/mkruijs/positionbot/internal/config"
	"github.com/mkruijs/positionbot/internal/domain"
	"github.com/mkruijs/positionbot/internal/store/postgres"
	"github.com/mkruijs/positionbot/internal/store/snapshot"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function. Panels and Archiver are nil when their backing service is not
// configured.
type Dependencies struct {
	Orders    domain.OrderStore
	Positions domain.PositionStore
	Panels    domain.PanelCache
	Archiver  domain.SnapshotArchiver
}

// needsPanel returns true for modes that read prices.
func needsPanel(mode string) bool {
	switch mode {
	case "manage", "propose":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Snapshot backend ---
	switch cfg.Snapshot.Backend {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Orders = postgres.NewOrderStore(pool)
		deps.Positions = postgres.NewPositionStore(pool)

	default:
		fileStore, err := snapshot.New(cfg.Snapshot.Dir, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: snapshot store: %w", err)
		}
		deps.Orders = fileStore
		deps.Positions = fileStore
	}

	// --- Redis panel cache (modes that read prices) ---
	if cfg.Redis.Enabled && needsPanel(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Panels = redis.NewPanelCache(redisClient)
	}

	// --- S3 snapshot archival (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, logger)
	}

	return deps, cleanup, nil
}
