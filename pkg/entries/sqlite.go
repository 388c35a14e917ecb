package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const (
	getEntryWithTagsStatement = `
	SELECT e.id, e.uuid, e.author_id, e.title, e.date, e.text, e.created_at, e.updated_at, t.id, t.text
	FROM entries e
	LEFT JOIN entry_tags et ON et.entry_id = e.id
	LEFT JOIN tags t ON t.id = et.tag_id
	WHERE e.uuid = ?
	ORDER BY et.position ASC
	`

	getEntryIDStatement = `
	SELECT id FROM entries WHERE uuid = ?
	`

	insertEntryStatement = `
	INSERT INTO entries (uuid, author_id, title, date, text)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id
	`

	updateEntryStatement = `
	UPDATE entries
	SET title = ?, date = ?, text = ?, updated_at = unixepoch()
	WHERE id = ?
	`

	clearEntryTagsStatement = `
	DELETE FROM entry_tags WHERE entry_id = ?
	`

	upsertTagStatement = `
	INSERT INTO tags (text) VALUES (?)
	ON CONFLICT(text) DO UPDATE SET text = excluded.text
	RETURNING id
	`

	attachTagStatement = `
	INSERT INTO entry_tags (entry_id, tag_id, position) VALUES (?, ?, ?)
	`

	listTagsStatement = `
	SELECT id, text, created_at FROM tags ORDER BY text ASC
	`
)

// SQLiteStore is a Store over a database prepared by db.UpgradeDB.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB exposes the underlying connection pool.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	rows, err := s.db.QueryContext(ctx, getEntryWithTagsStatement, id)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query entry %s: %w", id, err)
	}
	defer rows.Close()

	var (
		entry Entry
		found bool
	)
	for rows.Next() {
		var (
			dateMillis                     int64
			createdAtFloat, updatedAtFloat float64
			tagID                          sql.NullInt64
			tagText                        sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UUID,
			&entry.AuthorID,
			&entry.Title,
			&dateMillis,
			&entry.Text,
			&createdAtFloat,
			&updatedAtFloat,
			&tagID,
			&tagText,
		); err != nil {
			return Entry{}, fmt.Errorf("failed to scan entry row: %w", err)
		}
		if !found {
			entry.Date = time.UnixMilli(dateMillis).UTC()
			entry.CreatedAt = unixFloatToTime(createdAtFloat)
			entry.UpdatedAt = unixFloatToTime(updatedAtFloat)
			entry.Tags = []Tag{}
			found = true
		}
		if tagID.Valid {
			entry.Tags = append(entry.Tags, Tag{ID: tagID.Int64, Text: tagText.String})
		}
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("error iterating entry rows: %w", err)
	}

	if !found {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (s *SQLiteStore) CreateEntry(ctx context.Context, authorID int64, id uuid.UUID, fields EntryFields) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var entryID int64
	err = tx.QueryRowContext(ctx, insertEntryStatement,
		id,
		authorID,
		fields.Title,
		fields.Date.UnixMilli(),
		fields.Text,
	).Scan(&entryID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Entry{}, ErrEntryExists
		}
		return Entry{}, fmt.Errorf("failed to insert entry %s: %w", id, err)
	}

	if err := attachTagsTx(ctx, tx, entryID, fields.Tags); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit entry %s: %w", id, err)
	}
	return s.GetEntry(ctx, id)
}

func (s *SQLiteStore) UpdateEntry(ctx context.Context, id uuid.UUID, fields EntryFields) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var entryID int64
	if err := tx.QueryRowContext(ctx, getEntryIDStatement, id).Scan(&entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, fmt.Errorf("failed to look up entry %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, updateEntryStatement,
		fields.Title,
		fields.Date.UnixMilli(),
		fields.Text,
		entryID,
	); err != nil {
		return Entry{}, fmt.Errorf("failed to update entry %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, clearEntryTagsStatement, entryID); err != nil {
		return Entry{}, fmt.Errorf("failed to clear tags of entry %s: %w", id, err)
	}
	if err := attachTagsTx(ctx, tx, entryID, fields.Tags); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit entry %s: %w", id, err)
	}
	return s.GetEntry(ctx, id)
}

func attachTagsTx(ctx context.Context, tx *sql.Tx, entryID int64, tags []string) error {
	for position, text := range tags {
		var tagID int64
		if err := tx.QueryRowContext(ctx, upsertTagStatement, text).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", text, err)
		}
		if _, err := tx.ExecContext(ctx, attachTagStatement, entryID, tagID, position); err != nil {
			return fmt.Errorf("failed to attach tag %q: %w", text, err)
		}
	}
	return nil
}

// ListTags returns every tag in alphabetical order.
func (s *SQLiteStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, listTagsStatement)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		var createdAtFloat float64

		if err := rows.Scan(&t.ID, &t.Text, &createdAtFloat); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		t.CreatedAt = unixFloatToTime(createdAtFloat)
		tags = append(tags, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unixFloatToTime(f float64) time.Time {
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
}
