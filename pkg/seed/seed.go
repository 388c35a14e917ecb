// Package seed fills a journal with generated entries for demos and local
// development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/unowned-ai/daybook/pkg/entries"
)

var tagVocabulary = []string{
	"family", "work", "travel", "health", "friends",
	"reading", "gratitude", "weekend", "cooking", "outdoors",
}

// Creator stores new entries.
type Creator interface {
	Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error)
}

// Generator produces entry inputs. The same seed yields the same entries.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

func NewGenerator(seed int64, now time.Time) *Generator {
	return &Generator{faker: gofakeit.New(seed), now: now.UTC()}
}

// Input returns one generated entry dated within the year before now.
func (g *Generator) Input() entries.EntryInput {
	f := g.faker
	date := f.DateRange(g.now.AddDate(-1, 0, 0), g.now)

	tags := make([]string, 0, 3)
	for i := f.Number(0, 3); i > 0; i-- {
		tags = append(tags, f.RandomString(tagVocabulary))
	}

	return entries.EntryInput{
		UUID:  f.UUID(),
		Title: f.Sentence(f.Number(2, 6)),
		Date:  entries.FormatDate(date),
		Text:  f.Paragraph(f.Number(1, 3), f.Number(2, 5), 12, "\n\n"),
		Tags:  entries.NormalizeTags(tags),
	}
}

// Seed creates count generated entries through c and returns them in
// creation order.
func Seed(ctx context.Context, c Creator, g *Generator, count int, logger *slog.Logger) ([]entries.SerializedEntry, error) {
	if count < 0 {
		return nil, fmt.Errorf("count must not be negative, got %d", count)
	}
	created := make([]entries.SerializedEntry, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		entry, err := c.Create(ctx, g.Input())
		if err != nil {
			return created, fmt.Errorf("failed to seed entry %d of %d: %w", i+1, count, err)
		}
		created = append(created, entry)
	}
	if logger != nil {
		logger.Info("Seeded entries", "count", len(created))
	}
	return created, nil
}
