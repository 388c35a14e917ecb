package entries

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	items   map[uuid.UUID]SerializedEntry
	gets    int
	hits    int
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[uuid.UUID]SerializedEntry{}}
}

func (c *memoryCache) Get(_ context.Context, id uuid.UUID) (SerializedEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return SerializedEntry{}, false, c.failGet
	}
	e, ok := c.items[id]
	if ok {
		c.hits++
	}
	return e, ok, nil
}

func (c *memoryCache) Set(_ context.Context, e SerializedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[uuid.MustParse(e.UUID)] = e
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

type recordedEvent struct {
	eventType string
	entry     SerializedEntry
}

type recordingPublisher struct {
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishEntryEvent(_ context.Context, eventType string, e SerializedEntry) error {
	p.events = append(p.events, recordedEvent{eventType, e})
	return p.err
}

func seedEntry(t *testing.T, l *Loader, tags ...string) SerializedEntry {
	t.Helper()
	created, err := l.Create(context.Background(), EntryInput{
		Title: "Lake day",
		Date:  "2023-01-05T00:00:00Z",
		Text:  "<p>Cold</p>",
		Tags:  tags,
	})
	require.NoError(t, err)
	return created
}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(setupSQLiteStore(t))
	created := seedEntry(t, l, "travel", "family")

	got, err := l.Load(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, SerializedEntry{
		UUID:  created.UUID,
		Title: "Lake day",
		Date:  "2023-01-05T00:00:00.000Z",
		Text:  "<p>Cold</p>",
		Tags:  []string{"travel", "family"},
	}, got)
}

func TestLoader_LoadNotFound(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(setupSQLiteStore(t))

	for _, param := range []string{uuid.NewString(), "", "not-a-uuid", "12345"} {
		_, err := l.Load(ctx, param)
		assert.ErrorIs(t, err, ErrEntryNotFound, "param %q", param)
	}
}

func TestLoader_LoadUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	l := NewLoader(setupSQLiteStore(t), WithCache(cache))
	created := seedEntry(t, l)

	_, err := l.Load(ctx, created.UUID)
	require.NoError(t, err)
	_, err = l.Load(ctx, created.UUID)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.hits)
}

func TestLoader_CacheFailureFallsBackToStore(t *testing.T) {
	cache := newMemoryCache()
	cache.failGet = errors.New("connection refused")
	l := NewLoader(setupSQLiteStore(t), WithCache(cache))
	created := seedEntry(t, l)

	got, err := l.Load(context.Background(), created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)
}

func TestLoader_Update(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	pub := &recordingPublisher{}
	l := NewLoader(setupSQLiteStore(t), WithCache(cache), WithPublisher(pub))
	created := seedEntry(t, l, "a")

	_, err := l.Load(ctx, created.UUID)
	require.NoError(t, err)

	updated, err := l.Update(ctx, created.UUID, EntryInput{
		UUID:  created.UUID,
		Title: "Renamed",
		Date:  "2023-02-01T10:30:00.5+01:00",
		Text:  "changed",
		Tags:  []string{" b ", "a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "2023-02-01T09:30:00.500Z", updated.Date)
	assert.Equal(t, []string{"b", "a"}, updated.Tags)

	reloaded, err := l.Load(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, updated, reloaded, "cache must not serve the stale entry")

	require.Len(t, pub.events, 2)
	assert.Equal(t, EventEntryCreated, pub.events[0].eventType)
	assert.Equal(t, EventEntryUpdated, pub.events[1].eventType)
	assert.Equal(t, updated, pub.events[1].entry)
}

// gatedStore blocks the next GetEntry after it has read the row, until
// release is closed.
type gatedStore struct {
	Store
	armed   chan struct{}
	read    chan struct{}
	release chan struct{}
}

func (s *gatedStore) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	e, err := s.Store.GetEntry(ctx, id)
	select {
	case <-s.armed:
		close(s.read)
		<-s.release
	default:
	}
	return e, err
}

func TestLoader_UpdateDuringCacheMissIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	store := &gatedStore{
		Store:   setupSQLiteStore(t),
		armed:   make(chan struct{}),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
	l := NewLoader(store, WithCache(cache))
	created := seedEntry(t, l)
	close(store.armed)

	done := make(chan SerializedEntry)
	go func() {
		got, err := l.Load(ctx, created.UUID)
		assert.NoError(t, err)
		done <- got
	}()

	<-store.read
	store.armed = make(chan struct{})
	_, err := l.Update(ctx, created.UUID, EntryInput{
		Title: "Renamed",
		Date:  created.Date,
		Text:  created.Text,
	})
	require.NoError(t, err)
	close(store.release)

	assert.Equal(t, "Lake day", (<-done).Title)

	got, err := l.Load(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestLoader_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(setupSQLiteStore(t))
	created := seedEntry(t, l)

	_, err := l.Update(ctx, created.UUID, EntryInput{UUID: uuid.NewString(), Date: created.Date})
	assert.ErrorIs(t, err, ErrUUIDMismatch)

	_, err = l.Update(ctx, created.UUID, EntryInput{Date: "soon"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = l.Update(ctx, uuid.NewString(), EntryInput{Date: created.Date})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = l.Update(ctx, "garbage", EntryInput{Date: created.Date})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestLoader_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	l := NewLoader(setupSQLiteStore(t), WithPublisher(pub))

	created := seedEntry(t, l)
	assert.NotEmpty(t, created.UUID)
	assert.Len(t, pub.events, 1)
}

func TestLoader_CreateWithUUID(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(setupSQLiteStore(t))
	id := uuid.NewString()

	created, err := l.Create(ctx, EntryInput{UUID: id, Date: "2023-01-05T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, id, created.UUID)

	_, err = l.Create(ctx, EntryInput{UUID: id, Date: "2023-01-05T00:00:00Z"})
	assert.ErrorIs(t, err, ErrEntryExists)

	_, err = l.Create(ctx, EntryInput{UUID: "bad", Date: "2023-01-05T00:00:00Z"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoader_Delete(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(setupSQLiteStore(t))
	created := seedEntry(t, l)

	assert.ErrorIs(t, l.Delete(ctx, created.UUID), ErrNotYetAvailable)
	assert.ErrorIs(t, l.Delete(ctx, uuid.NewString()), ErrEntryNotFound)

	_, err := l.Load(ctx, created.UUID)
	assert.NoError(t, err, "delete placeholder must not remove the entry")
}

func TestLoader_ListTags(t *testing.T) {
	l := NewLoader(setupSQLiteStore(t))
	seedEntry(t, l, "zebra", "apple")

	tags, err := l.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, tags)
}
