package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unowned-ai/daybook/pkg/editor"
	"github.com/unowned-ai/daybook/pkg/entries"
)

type entryLoadedMsg struct {
	entry entries.SerializedEntry
}

type loadFailedMsg struct {
	err error
}

// saveResultMsg carries the outcome of one submitted save back to Update.
type saveResultMsg struct {
	seq     uint64
	created bool
	entry   entries.SerializedEntry
	err     error
}

type noticeExpiredMsg struct {
	id int
}

// Load the entry from the source and return tea data
func loadEntry(src EntrySource, id string) tea.Cmd {
	return func() tea.Msg {
		entry, err := src.Load(context.Background(), id)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return entryLoadedMsg{entry: entry}
	}
}

// Send an update for a committed form
func updateEntry(src EntrySource, op editor.SaveOp) tea.Cmd {
	return func() tea.Msg {
		in := op.Form.Input()
		entry, err := src.Update(context.Background(), in.UUID, in)
		return saveResultMsg{seq: op.Seq, entry: entry, err: err}
	}
}

// Send a create for the first save of a new entry
func createEntry(src Creator, op editor.SaveOp) tea.Cmd {
	return func() tea.Msg {
		entry, err := src.Create(context.Background(), op.Form.Input())
		return saveResultMsg{seq: op.Seq, created: true, entry: entry, err: err}
	}
}

// Clear the notice after ttl unless a newer one replaced it
func expireNotice(id int, ttl time.Duration) tea.Cmd {
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}
