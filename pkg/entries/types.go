package entries

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Entry is a journal entry as stored, joined with its tags.
type Entry struct {
	ID        int64
	UUID      uuid.UUID
	AuthorID  int64
	Title     string
	Date      time.Time
	Text      string
	Tags      []Tag
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tag is a label attached to entries. Text is unique across the store.
type Tag struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// SerializedEntry is the transport form of an Entry. Internal keys are never
// part of it.
type SerializedEntry struct {
	UUID  string   `json:"uuid"`
	Title string   `json:"title"`
	Date  string   `json:"date"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// EntryInput is the body of a create or update request.
type EntryInput struct {
	UUID  string   `json:"uuid,omitempty"`
	Title string   `json:"title"`
	Date  string   `json:"date"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// EntryFields holds validated, normalized values ready to be written.
type EntryFields struct {
	Title string
	Date  time.Time
	Text  string
	Tags  []string
}

// Draft is a hydrated entry with typed values, the shape editors work on.
type Draft struct {
	UUID  uuid.UUID
	Title string
	Date  time.Time
	Text  string
	Tags  []string
}

// Clone returns a copy of d that shares no memory with it.
func (d Draft) Clone() Draft {
	d.Tags = slices.Clone(d.Tags)
	return d
}

// Equal reports whether d and other carry the same values.
func (d Draft) Equal(other Draft) bool {
	return d.UUID == other.UUID &&
		d.Title == other.Title &&
		d.Date.Equal(other.Date) &&
		d.Text == other.Text &&
		slices.Equal(d.Tags, other.Tags)
}

// Input converts d to the request body sent on save.
func (d Draft) Input() EntryInput {
	tags := slices.Clone(d.Tags)
	if tags == nil {
		tags = []string{}
	}
	return EntryInput{
		UUID:  d.UUID.String(),
		Title: d.Title,
		Date:  FormatDate(d.Date),
		Text:  d.Text,
		Tags:  tags,
	}
}

// Event types published after successful writes.
const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
)
