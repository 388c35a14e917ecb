package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// Nop never stores anything. Every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (entries.SerializedEntry, bool, error) {
	return entries.SerializedEntry{}, false, nil
}

func (Nop) Set(context.Context, entries.SerializedEntry) error { return nil }

func (Nop) Delete(context.Context, uuid.UUID) error { return nil }

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Close() error { return nil }
