package entries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/unowned-ai/daybook/pkg/db"
)

// Cache holds serialized entries keyed by uuid. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (SerializedEntry, bool, error)
	Set(ctx context.Context, entry SerializedEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Publisher announces successful writes.
type Publisher interface {
	PublishEntryEvent(ctx context.Context, eventType string, entry SerializedEntry) error
}

// Loader is the read and write path every surface goes through.
type Loader struct {
	store     Store
	cache     Cache
	publisher Publisher
	logger    *slog.Logger
	authorID  int64

	// fillMu orders cache fills against invalidations. A fill is dropped
	// when the entry was written after the fill read the store.
	fillMu      sync.Mutex
	generations map[uuid.UUID]uint64
}

type LoaderOption func(*Loader)

func WithCache(c Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

func WithPublisher(p Publisher) LoaderOption {
	return func(l *Loader) { l.publisher = p }
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithAuthor sets the author new entries are created for.
func WithAuthor(authorID int64) LoaderOption {
	return func(l *Loader) { l.authorID = authorID }
}

func NewLoader(store Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:       store,
		logger:      slog.Default(),
		authorID:    db.DefaultAuthorID,
		generations: map[uuid.UUID]uint64{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseID parses an entry identifier. Anything that is not a uuid cannot
// match an entry, so it is reported as ErrEntryNotFound.
func ParseID(param string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(param))
	if err != nil {
		return uuid.Nil, ErrEntryNotFound
	}
	return id, nil
}

// Load fetches the entry named by param and serializes it.
func (l *Loader) Load(ctx context.Context, param string) (SerializedEntry, error) {
	id, err := ParseID(param)
	if err != nil {
		return SerializedEntry{}, err
	}

	if l.cache != nil {
		cached, ok, err := l.cache.Get(ctx, id)
		switch {
		case err != nil:
			l.logger.WarnContext(ctx, "entry cache read failed", slog.String("uuid", id.String()), slog.Any("error", err))
		case ok:
			return cached, nil
		}
	}

	gen := l.generation(id)
	entry, err := l.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return SerializedEntry{}, ErrEntryNotFound
		}
		return SerializedEntry{}, fmt.Errorf("failed to load entry %s: %w", id, err)
	}

	serialized := Serialize(entry)
	l.fill(ctx, id, gen, serialized)
	return serialized, nil
}

// Update replaces the entry named by param with in. When in carries a uuid it
// must name the same entry.
func (l *Loader) Update(ctx context.Context, param string, in EntryInput) (SerializedEntry, error) {
	id, err := ParseID(param)
	if err != nil {
		return SerializedEntry{}, err
	}
	if body := strings.TrimSpace(in.UUID); body != "" {
		bodyID, err := uuid.Parse(body)
		if err != nil || bodyID != id {
			return SerializedEntry{}, ErrUUIDMismatch
		}
	}

	fields, err := Validate(in)
	if err != nil {
		return SerializedEntry{}, err
	}

	entry, err := l.store.UpdateEntry(ctx, id, fields)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return SerializedEntry{}, ErrEntryNotFound
		}
		return SerializedEntry{}, fmt.Errorf("failed to update entry %s: %w", id, err)
	}

	l.invalidate(ctx, id)
	serialized := Serialize(entry)
	l.publish(ctx, EventEntryUpdated, serialized)
	l.logger.InfoContext(ctx, "entry updated", slog.String("uuid", serialized.UUID), slog.Int("tags", len(serialized.Tags)))
	return serialized, nil
}

// Create stores a new entry. A uuid is generated when in has none.
func (l *Loader) Create(ctx context.Context, in EntryInput) (SerializedEntry, error) {
	id := uuid.New()
	if body := strings.TrimSpace(in.UUID); body != "" {
		parsed, err := uuid.Parse(body)
		if err != nil {
			verr := &ValidationError{}
			verr.add("uuid", "must be a uuid")
			return SerializedEntry{}, verr
		}
		id = parsed
	}

	fields, err := Validate(in)
	if err != nil {
		return SerializedEntry{}, err
	}

	entry, err := l.store.CreateEntry(ctx, l.authorID, id, fields)
	if err != nil {
		if errors.Is(err, ErrEntryExists) {
			return SerializedEntry{}, ErrEntryExists
		}
		return SerializedEntry{}, fmt.Errorf("failed to create entry: %w", err)
	}

	serialized := Serialize(entry)
	l.publish(ctx, EventEntryCreated, serialized)
	l.logger.InfoContext(ctx, "entry created", slog.String("uuid", serialized.UUID))
	return serialized, nil
}

// Delete is announced but not built. It reports ErrEntryNotFound for unknown
// entries and ErrNotYetAvailable otherwise.
func (l *Loader) Delete(ctx context.Context, param string) error {
	id, err := ParseID(param)
	if err != nil {
		return err
	}
	if _, err := l.store.GetEntry(ctx, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to load entry %s: %w", id, err)
	}
	return ErrNotYetAvailable
}

// ListTags returns the text of every known tag, alphabetically.
func (l *Loader) ListTags(ctx context.Context) ([]string, error) {
	tags, err := l.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Text)
	}
	return out, nil
}

// Ping checks the store.
func (l *Loader) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

func (l *Loader) generation(id uuid.UUID) uint64 {
	l.fillMu.Lock()
	defer l.fillMu.Unlock()
	return l.generations[id]
}

// fill caches entry unless id was invalidated since gen was read.
func (l *Loader) fill(ctx context.Context, id uuid.UUID, gen uint64, entry SerializedEntry) {
	if l.cache == nil {
		return
	}
	l.fillMu.Lock()
	defer l.fillMu.Unlock()
	if l.generations[id] != gen {
		l.logger.DebugContext(ctx, "skipping stale entry cache fill", slog.String("uuid", id.String()))
		return
	}
	if err := l.cache.Set(ctx, entry); err != nil {
		l.logger.WarnContext(ctx, "entry cache write failed", slog.String("uuid", id.String()), slog.Any("error", err))
	}
}

func (l *Loader) invalidate(ctx context.Context, id uuid.UUID) {
	if l.cache == nil {
		return
	}
	l.fillMu.Lock()
	defer l.fillMu.Unlock()
	l.generations[id]++
	if err := l.cache.Delete(ctx, id); err != nil {
		l.logger.WarnContext(ctx, "entry cache invalidation failed", slog.String("uuid", id.String()), slog.Any("error", err))
	}
}

func (l *Loader) publish(ctx context.Context, eventType string, entry SerializedEntry) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishEntryEvent(ctx, eventType, entry); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish entry event",
			slog.String("event", eventType),
			slog.String("uuid", entry.UUID),
			slog.Any("error", err),
		)
	}
}
