package entries

import (
	"context"

	"github.com/google/uuid"
)

// Store persists entries and their tags.
type Store interface {
	// GetEntry returns the entry joined with its tags in attach order, or
	// ErrEntryNotFound.
	GetEntry(ctx context.Context, id uuid.UUID) (Entry, error)
	CreateEntry(ctx context.Context, authorID int64, id uuid.UUID, fields EntryFields) (Entry, error)
	// UpdateEntry replaces title, date, text and the whole tag set atomically.
	UpdateEntry(ctx context.Context, id uuid.UUID, fields EntryFields) (Entry, error)
	ListTags(ctx context.Context) ([]Tag, error)
	Ping(ctx context.Context) error
	Close() error
}
