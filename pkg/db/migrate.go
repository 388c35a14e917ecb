package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// TargetSchemaVersion is the highest schema version this build supports for
	// the daybookdb component.
	TargetSchemaVersion int64 = 1
	// DaybookDBComponent names the main database component in daybook_versions.
	DaybookDBComponent = "daybookdb"
)

const upsertVersionStatement = `
INSERT INTO daybook_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`

// GetComponentSchemaVersion retrieves the schema version for a given component.
// Returns 0 if the component is not recorded or the versions table does not exist yet.
func GetComponentSchemaVersion(ctx context.Context, db *sql.DB, componentName string) (int64, error) {
	var version int64
	err := db.QueryRowContext(ctx, `SELECT version FROM daybook_versions WHERE component = ?;`, componentName).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		if strings.Contains(err.Error(), "no such table") && strings.Contains(err.Error(), "daybook_versions") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan version for component '%s': %w", componentName, err)
	}
	return version, nil
}

// InitializeSchema creates every daybookdb table and records schemaVersionToSet.
func InitializeSchema(ctx context.Context, db *sql.DB, schemaVersionToSet int64) error {
	if _, err := db.ExecContext(ctx, SchemaV1); err != nil {
		return fmt.Errorf("failed to execute schema v1 SQL: %w", err)
	}

	if _, err := db.ExecContext(ctx, upsertVersionStatement, DaybookDBComponent, schemaVersionToSet); err != nil {
		return fmt.Errorf("failed to insert/update version for component %s to %d: %w", DaybookDBComponent, schemaVersionToSet, err)
	}
	return nil
}

// UpgradeDB brings the daybookdb component of db to appTargetSchemaVersion.
// dbIdentifierForLog only appears in log lines and errors.
func UpgradeDB(ctx context.Context, db *sql.DB, dbIdentifierForLog string, appTargetSchemaVersion int64, logger *slog.Logger) error {
	currentDBVersion, err := GetComponentSchemaVersion(ctx, db, DaybookDBComponent)
	if err != nil {
		return err
	}
	return applyVersion(logger, dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion, func() error {
		return InitializeSchema(ctx, db, appTargetSchemaVersion)
	})
}

// applyVersion holds the upgrade policy shared by the SQLite and Postgres paths:
// initialize fresh databases, accept matching ones, refuse everything else.
func applyVersion(logger *slog.Logger, dbIdentifierForLog string, current, target int64, initialize func() error) error {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case current == 0:
		logger.Info("initializing database schema",
			slog.String("component", DaybookDBComponent),
			slog.String("database", dbIdentifierForLog),
			slog.Int64("version", target),
		)
		if err := initialize(); err != nil {
			return fmt.Errorf("failed to initialize component %s in database '%s': %w", DaybookDBComponent, dbIdentifierForLog, err)
		}
		return nil
	case current == target:
		logger.Debug("database schema up to date",
			slog.String("component", DaybookDBComponent),
			slog.String("database", dbIdentifierForLog),
			slog.Int64("version", current),
		)
		return nil
	case current < target:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is older than application's target schema version %d. Automatic migration from this older version is not yet supported", DaybookDBComponent, dbIdentifierForLog, current, target)
	default:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application", DaybookDBComponent, dbIdentifierForLog, current, target)
	}
}
