package entries

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midnight utc", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), "2023-01-05T00:00:00.000Z"},
		{"keeps milliseconds", time.Date(2024, 2, 29, 13, 4, 5, 123_456_789, time.UTC), "2024-02-29T13:04:05.123Z"},
		{"converts to utc", time.Date(2023, 1, 5, 2, 0, 0, 0, time.FixedZone("EET", 2*60*60)), "2023-01-05T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-01-05T02:00:00.123456+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2023, 1, 5, 0, 0, 0, 123_000_000, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParseDate("5 January 2023")
	assert.Error(t, err)
}

func TestSerialize(t *testing.T) {
	id := uuid.MustParse("6f1c1d1e-8d7b-4a8f-9f38-2c1d2a3b4c5d")
	entry := Entry{
		ID:       42,
		UUID:     id,
		AuthorID: 7,
		Title:    "Lake day",
		Date:     time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		Text:     "<p>Cold water.</p>",
		Tags:     []Tag{{ID: 3, Text: "travel"}, {ID: 1, Text: "family"}},
	}

	want := SerializedEntry{
		UUID:  id.String(),
		Title: "Lake day",
		Date:  "2023-01-05T00:00:00.000Z",
		Text:  "<p>Cold water.</p>",
		Tags:  []string{"travel", "family"},
	}
	if diff := cmp.Diff(want, Serialize(entry)); diff != "" {
		t.Errorf("Serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize_JSONHasNoInternalKeys(t *testing.T) {
	raw, err := json.Marshal(Serialize(Entry{ID: 1, AuthorID: 2, UUID: uuid.New()}))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "authorId")
	assert.Equal(t, []any{}, fields["tags"], "an entry without tags serializes an empty list")
}

func TestHydrate_RoundTrip(t *testing.T) {
	s := SerializedEntry{
		UUID:  uuid.NewString(),
		Title: "t",
		Date:  "2023-01-05T00:00:00.000Z",
		Text:  "body",
		Tags:  []string{"a", "b"},
	}
	draft, err := Hydrate(s)
	require.NoError(t, err)
	assert.Equal(t, s.Date, FormatDate(draft.Date))
	assert.Equal(t, s.Tags, draft.Tags)

	in := draft.Input()
	assert.Equal(t, s.UUID, in.UUID)
	assert.Equal(t, s.Date, in.Date)

	_, err = Hydrate(SerializedEntry{UUID: "nope", Date: s.Date})
	assert.Error(t, err)
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" travel ", "", "family", "travel", "  ", "work"})
	if diff := cmp.Diff([]string{"travel", "family", "work"}, got); diff != "" {
		t.Errorf("NormalizeTags mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	valid := EntryInput{Title: " Title ", Date: "2023-01-05T00:00:00Z", Text: "x", Tags: []string{"a"}}
	fields, err := Validate(valid)
	require.NoError(t, err)
	assert.Equal(t, "Title", fields.Title)

	tooManyTags := make([]string, MaxTags+1)
	for i := range tooManyTags {
		tooManyTags[i] = uuid.NewString()
	}

	tests := []struct {
		name  string
		in    EntryInput
		field string
	}{
		{"missing date", EntryInput{}, "date"},
		{"bad date", EntryInput{Date: "yesterday"}, "date"},
		{"long title", EntryInput{Date: valid.Date, Title: strings.Repeat("é", MaxTitleLength+1)}, "title"},
		{"long tag", EntryInput{Date: valid.Date, Tags: []string{strings.Repeat("t", MaxTagLength+1)}}, "tags"},
		{"too many tags", EntryInput{Date: valid.Date, Tags: tooManyTags}, "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestValidate_TitleAtLimit(t *testing.T) {
	_, err := Validate(EntryInput{Date: "2023-01-05T00:00:00Z", Title: strings.Repeat("a", MaxTitleLength)})
	assert.NoError(t, err)
}

func TestDraftEqualAndClone(t *testing.T) {
	d := Draft{UUID: uuid.New(), Title: "a", Date: time.Now(), Tags: []string{"x"}}
	c := d.Clone()
	assert.True(t, d.Equal(c))

	c.Tags[0] = "y"
	assert.Equal(t, "x", d.Tags[0], "clone must not share tags")
	assert.False(t, d.Equal(c))
}
