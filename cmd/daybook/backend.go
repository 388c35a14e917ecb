package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/daybook/pkg/cache"
	"github.com/unowned-ai/daybook/pkg/client"
	"github.com/unowned-ai/daybook/pkg/config"
	"github.com/unowned-ai/daybook/pkg/db"
	"github.com/unowned-ai/daybook/pkg/entries"
	"github.com/unowned-ai/daybook/pkg/events"
	"github.com/unowned-ai/daybook/pkg/utils"
)

// entryService is what the CLI commands need, served either by a local
// Loader or by a remote daybook server.
type entryService interface {
	Load(ctx context.Context, id string) (entries.SerializedEntry, error)
	Update(ctx context.Context, id string, in entries.EntryInput) (entries.SerializedEntry, error)
	Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error)
	ListTags(ctx context.Context) ([]string, error)
}

// loadConfig reads the configuration and applies the persistent flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = dbPath
	}
	if flags.Changed("wal") {
		cfg.Database.WAL = walMode
	}
	if flags.Changed("sync") {
		cfg.Database.Sync = syncMode
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// cliLogger writes human-readable logs to w. Commands keep stdout for their
// own output.
func cliLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return config.LogConfig{Level: cfg.Log.Level, Format: "text"}.NewLogger(w)
}

// openStore opens the configured store and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (entries.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := db.OpenPostgres(ctx, cfg.Database.URL, cfg.Database.MaxPoolConnections)
		if err != nil {
			return nil, err
		}
		if err := db.UpgradePostgres(ctx, pool, "postgres", db.TargetSchemaVersion, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return entries.NewPostgresStore(pool), nil

	default:
		path, err := utils.ResolveAndEnsureDBPath(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		conn, err := db.OpenDBConnection(path, cfg.Database.WAL, cfg.Database.Sync)
		if err != nil {
			return nil, err
		}
		if err := db.UpgradeDB(ctx, conn, path, db.TargetSchemaVersion, logger); err != nil {
			conn.Close()
			return nil, err
		}
		return &checkpointingStore{SQLiteStore: entries.NewSQLiteStore(conn), wal: cfg.Database.WAL, logger: logger}, nil
	}
}

// checkpointingStore folds the WAL back into the main database file on close.
type checkpointingStore struct {
	*entries.SQLiteStore
	wal    bool
	logger *slog.Logger
}

func (s *checkpointingStore) Close() error {
	if s.wal {
		if err := db.Checkpoint(context.Background(), s.DB()); err != nil {
			s.logger.Warn("WAL checkpoint failed", "error", err)
		}
	}
	return s.SQLiteStore.Close()
}

type entryCache interface {
	entries.Cache
	Ping(ctx context.Context) error
	Close() error
}

func openCache(cfg *config.Config) entryCache {
	if cfg.Cache.Addr == "" {
		return cache.Nop{}
	}
	return cache.NewRedisCache(cfg.Cache.Addr, cfg.Cache.TTL)
}

type entryPublisher interface {
	entries.Publisher
	Close() error
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (entryPublisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		return events.Nop{}, nil
	}
	producer, err := events.NewSyncProducer(cfg.Events.Brokers)
	if err != nil {
		return nil, err
	}
	return events.NewKafkaPublisher(logger, producer, cfg.Events.Topic), nil
}

// localLoader wires a Loader from the configuration. The returned close
// function releases everything it opened.
func localLoader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*entries.Loader, func() error, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	c := openCache(cfg)
	pub, err := openPublisher(cfg, logger)
	if err != nil {
		c.Close()
		store.Close()
		return nil, nil, err
	}

	loader := entries.NewLoader(store,
		entries.WithCache(c),
		entries.WithPublisher(pub),
		entries.WithLogger(logger),
	)
	closeAll := func() error {
		return errors.Join(pub.Close(), c.Close(), store.Close())
	}
	return loader, closeAll, nil
}

// openService returns a client for --server, or a local Loader otherwise.
func openService(cmd *cobra.Command) (entryService, func() error, error) {
	if serverURL != "" {
		return client.New(serverURL), func() error { return nil }, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	loader, closeFn, err := localLoader(cmd.Context(), cfg, cliLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, err
	}
	return loader, closeFn, nil
}

// describeNotFound turns the not-found sentinel into the message shown to users.
func describeNotFound(err error, id string) error {
	if errors.Is(err, entries.ErrEntryNotFound) {
		return fmt.Errorf("entry not found: %s", id)
	}
	return err
}
