package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unowned-ai/daybook/pkg/db"
)

const (
	pgGetEntryWithTagsStatement = `
	SELECT e.id, e.uuid, e.author_id, e.title, e.date, e.text, e.created_at, e.updated_at, t.id, t.text
	FROM entries e
	LEFT JOIN entry_tags et ON et.entry_id = e.id
	LEFT JOIN tags t ON t.id = et.tag_id
	WHERE e.uuid = $1
	ORDER BY et.position ASC
	`

	pgGetEntryIDForUpdateStatement = `
	SELECT id FROM entries WHERE uuid = $1 FOR UPDATE
	`

	pgInsertEntryStatement = `
	INSERT INTO entries (uuid, author_id, title, date, text)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`

	pgUpdateEntryStatement = `
	UPDATE entries
	SET title = $1, date = $2, text = $3, updated_at = now()
	WHERE id = $4
	`

	pgClearEntryTagsStatement = `
	DELETE FROM entry_tags WHERE entry_id = $1
	`

	pgUpsertTagStatement = `
	INSERT INTO tags (text) VALUES ($1)
	ON CONFLICT (text) DO UPDATE SET text = excluded.text
	RETURNING id
	`

	pgAttachTagStatement = `
	INSERT INTO entry_tags (entry_id, tag_id, position) VALUES ($1, $2, $3)
	`

	pgListTagsStatement = `
	SELECT id, text, created_at FROM tags ORDER BY text ASC
	`
)

// PostgresStore is a Store over a pool prepared by db.UpgradePostgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	rows, err := s.pool.Query(ctx, pgGetEntryWithTagsStatement, id)
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
			date, createdAt, updatedAt time.Time
			tagID                      *int64
			tagText                    *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UUID,
			&entry.AuthorID,
			&entry.Title,
			&date,
			&entry.Text,
			&createdAt,
			&updatedAt,
			&tagID,
			&tagText,
		); err != nil {
			return Entry{}, fmt.Errorf("failed to scan entry row: %w", err)
		}
		if !found {
			entry.Date = date.UTC()
			entry.CreatedAt = createdAt.UTC()
			entry.UpdatedAt = updatedAt.UTC()
			entry.Tags = []Tag{}
			found = true
		}
		if tagID != nil && tagText != nil {
			entry.Tags = append(entry.Tags, Tag{ID: *tagID, Text: *tagText})
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

func (s *PostgresStore) CreateEntry(ctx context.Context, authorID int64, id uuid.UUID, fields EntryFields) (Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var entryID int64
	err = tx.QueryRow(ctx, pgInsertEntryStatement,
		id,
		authorID,
		fields.Title,
		fields.Date,
		fields.Text,
	).Scan(&entryID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Entry{}, ErrEntryExists
		}
		return Entry{}, fmt.Errorf("failed to insert entry %s: %w", id, err)
	}

	if err := pgAttachTags(ctx, tx, entryID, fields.Tags); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("failed to commit entry %s: %w", id, err)
	}
	return s.GetEntry(ctx, id)
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, id uuid.UUID, fields EntryFields) (Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var entryID int64
	if err := tx.QueryRow(ctx, pgGetEntryIDForUpdateStatement, id).Scan(&entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, fmt.Errorf("failed to look up entry %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, pgUpdateEntryStatement, fields.Title, fields.Date, fields.Text, entryID); err != nil {
		return Entry{}, fmt.Errorf("failed to update entry %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, pgClearEntryTagsStatement, entryID); err != nil {
		return Entry{}, fmt.Errorf("failed to clear tags of entry %s: %w", id, err)
	}
	if err := pgAttachTags(ctx, tx, entryID, fields.Tags); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("failed to commit entry %s: %w", id, err)
	}
	return s.GetEntry(ctx, id)
}

func pgAttachTags(ctx context.Context, tx pgx.Tx, entryID int64, tags []string) error {
	for position, text := range tags {
		var tagID int64
		if err := tx.QueryRow(ctx, pgUpsertTagStatement, text).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", text, err)
		}
		if _, err := tx.Exec(ctx, pgAttachTagStatement, entryID, tagID, position); err != nil {
			return fmt.Errorf("failed to attach tag %q: %w", text, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.pool.Query(ctx, pgListTagsStatement)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return tags, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
