package entries

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DateLayout renders dates as ISO-8601 in UTC with millisecond precision,
// e.g. 2023-01-05T00:00:00.000Z.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	MaxTitleLength = 256
	MaxTags        = 64
	MaxTagLength   = 64
)

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate accepts any RFC 3339 timestamp and returns it in UTC truncated to
// the millisecond, the precision the store keeps.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Serialize reshapes a stored entry for transport: internal keys are dropped,
// the date becomes a string and tags are flattened to their text in store order.
func Serialize(e Entry) SerializedEntry {
	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, t.Text)
	}
	return SerializedEntry{
		UUID:  e.UUID.String(),
		Title: e.Title,
		Date:  FormatDate(e.Date),
		Text:  e.Text,
		Tags:  tags,
	}
}

// Hydrate turns a serialized entry back into typed values.
func Hydrate(s SerializedEntry) (Draft, error) {
	id, err := uuid.Parse(s.UUID)
	if err != nil {
		return Draft{}, fmt.Errorf("invalid uuid %q: %w", s.UUID, err)
	}
	date, err := ParseDate(s.Date)
	if err != nil {
		return Draft{}, err
	}
	tags := make([]string, len(s.Tags))
	copy(tags, s.Tags)
	return Draft{
		UUID:  id,
		Title: s.Title,
		Date:  date,
		Text:  s.Text,
		Tags:  tags,
	}, nil
}

// NormalizeTags trims every tag, drops empty ones and collapses duplicates
// keeping the first occurrence.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate checks in and returns the values to persist. The error, if any,
// is a *ValidationError listing every invalid field.
func Validate(in EntryInput) (EntryFields, error) {
	verr := &ValidationError{}
	fields := EntryFields{
		Title: strings.TrimSpace(in.Title),
		Text:  in.Text,
		Tags:  NormalizeTags(in.Tags),
	}

	if n := utf8.RuneCountInString(fields.Title); n > MaxTitleLength {
		verr.add("title", "must be at most %d characters, got %d", MaxTitleLength, n)
	}

	if strings.TrimSpace(in.Date) == "" {
		verr.add("date", "is required")
	} else if date, err := ParseDate(in.Date); err != nil {
		verr.add("date", "must be an RFC 3339 timestamp")
	} else {
		fields.Date = date
	}

	if len(fields.Tags) > MaxTags {
		verr.add("tags", "at most %d tags are allowed, got %d", MaxTags, len(fields.Tags))
	}
	for _, t := range fields.Tags {
		if n := utf8.RuneCountInString(t); n > MaxTagLength {
			verr.add("tags", "tag %q must be at most %d characters", t, MaxTagLength)
		}
	}

	if err := verr.orNil(); err != nil {
		return EntryFields{}, err
	}
	return fields, nil
}
