package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres builds a pgx pool for databaseURL and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL string, maxConnections int) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	if maxConnections > 0 {
		config.MaxConns = int32(maxConnections) //nolint:gosec
	}
	config.MinConns = 1
	config.MaxConnIdleTime = 5 * time.Minute
	config.MaxConnLifetime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.RuntimeParams = map[string]string{
		"timezone":          "UTC",
		"statement_timeout": "30s",
		"lock_timeout":      "10s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// UpgradePostgres is UpgradeDB for a Postgres pool.
func UpgradePostgres(ctx context.Context, pool *pgxpool.Pool, dbIdentifierForLog string, appTargetSchemaVersion int64, logger *slog.Logger) error {
	var current int64
	err := pool.QueryRow(ctx, `SELECT version FROM daybook_versions WHERE component = $1`, DaybookDBComponent).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows), IsUndefinedTable(err):
		current = 0
	case err != nil:
		return fmt.Errorf("failed to scan version for component '%s': %w", DaybookDBComponent, err)
	}

	return applyVersion(logger, dbIdentifierForLog, current, appTargetSchemaVersion, func() error {
		if _, err := pool.Exec(ctx, PostgresSchemaV1); err != nil {
			return fmt.Errorf("failed to execute postgres schema v1 SQL: %w", err)
		}
		_, err := pool.Exec(ctx, `
INSERT INTO daybook_versions (component, version) VALUES ($1, $2)
ON CONFLICT (component) DO UPDATE SET version = excluded.version, created_at = now()`,
			DaybookDBComponent, appTargetSchemaVersion)
		return err
	})
}

// IsUndefinedTable reports a Postgres "relation does not exist" error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// IsUniqueViolation reports a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
