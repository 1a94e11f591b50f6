package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/rosegoldcruz/atom-sub001/internal/blob/s3"
	"github.com/rosegoldcruz/atom-sub001/internal/cache/redis"
	"github.com/rosegoldcruz/atom-sub001/internal/chain"
	"github.com/rosegoldcruz/atom-sub001/internal/config"
	"github.com/rosegoldcruz/atom-sub001/internal/domain"
	"github.com/rosegoldcruz/atom-sub001/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Constructed by Wire and
// torn down by the returned cleanup function.
type Dependencies struct {
	// Chain is nil in supervise mode; the supervisor never reads the chain.
	Chain *chain.Client

	Sink domain.SignalSink
	// Signals is the read side of the same stream, used by tail mode.
	Signals   domain.SignalReader
	Control   domain.ControlPlane
	Snapshots domain.PairSnapshotStore
	Locks     domain.LockManager

	// Archive is nil unless Postgres is enabled.
	Archive domain.SignalArchive
	// Archiver is nil unless both Postgres and S3 are enabled.
	Archiver *s3blob.SignalArchiver
}

// Wire constructs the concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis: stream, control flags, snapshots, locks ---
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

	stream := redis.NewSignalStream(redisClient, cfg.Scanner.StreamMaxLen)
	deps.Sink = stream
	deps.Signals = stream
	deps.Control = redis.NewControlPlane(redisClient, cfg.Control.KillKey, cfg.Control.PausePrefix, logger)
	deps.Snapshots = redis.NewPairSnapshotStore(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)

	// --- Chain (scan mode only) ---
	if cfg.Mode == "scan" {
		var feed common.Address
		if cfg.Chain.GasOracleFeed != "" {
			feed = common.HexToAddress(cfg.Chain.GasOracleFeed)
		}
		chainClient, err := chain.Dial(ctx, chain.ClientConfig{
			RPCURL:      cfg.Chain.RPCURL,
			CallTimeout: cfg.Chain.CallTimeout.Duration,
			OracleFeed:  feed,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.Chain = chainClient
	}

	// --- Postgres signal archive (optional) ---
	if cfg.Postgres.Enabled {
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
			if err := pgClient.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Archive = postgres.NewSignalStore(pgClient.Pool())
	}

	// --- S3 cold storage (optional, needs the archive as its source) ---
	if cfg.S3.Enabled && deps.Archive != nil {
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
		writer := s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewSignalArchiver(deps.Archive, writer, 0, logger)
	}

	return deps, cleanup, nil
}
