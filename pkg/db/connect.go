package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// validSyncModes lists the allowed values for the synchronous pragma.
var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

// busyTimeout is how long a writer waits on a locked database before failing.
const busyTimeout = 5 * time.Second

// OpenDBConnection establishes a connection to a SQLite database.
// baseDSN is the file path (or ":memory:"), enableWAL switches journal_mode to
// WAL and syncPragma sets the synchronous pragma (OFF, NORMAL, FULL, EXTRA).
func OpenDBConnection(baseDSN string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	params := url.Values{}
	params.Add("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	params.Add("_foreign_keys", "on")

	if enableWAL {
		params.Add("_journal_mode", "WAL")
	}

	if syncPragma != "" {
		ucSyncPragma := strings.ToUpper(syncPragma)
		if !validSyncModes[ucSyncPragma] {
			return nil, fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Add("_synchronous", ucSyncPragma)
	}

	constructedDSN := baseDSN
	if strings.Contains(baseDSN, "?") {
		constructedDSN += "&" + params.Encode()
	} else {
		constructedDSN += "?" + params.Encode()
	}

	db, err := sql.Open("sqlite3", constructedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", constructedDSN, err)
	}

	// Every :memory: connection is a separate database, so pin the pool to one.
	if strings.HasPrefix(baseDSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), busyTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", constructedDSN, err)
	}

	// The DSN flag covers new pool connections; this covers the one we just pinged
	// on driver builds that ignore _foreign_keys.
	if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign key support for DSN '%s': %w", constructedDSN, err)
	}

	return db, nil
}

// Checkpoint folds the WAL back into the main database file. It is a no-op
// for databases not in WAL mode.
func Checkpoint(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
	return err
}
