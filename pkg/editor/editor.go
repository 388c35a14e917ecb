// Package editor holds the state of one entry's detail form: whether it is
// being viewed or edited, the values on screen, and the saves in flight.
package editor

import (
	"errors"
	"sync"
	"time"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// Mode is whether the form renders read-only or editable fields.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

var (
	ErrNotEditing        = errors.New("editor is not in edit mode")
	ErrInvalidTransition = errors.New("invalid mode transition")
	ErrUnknownSave       = errors.New("unknown save")
)

// SaveState tracks a submitted save.
type SaveState int

const (
	Pending SaveState = iota
	Committed
	Failed
)

func (s SaveState) String() string {
	switch s {
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// SaveOp is one submitted save. Form is the full form at submit time.
type SaveOp struct {
	Seq   uint64
	Form  entries.Draft
	State SaveState
	Err   error
}

// Action names an editor action.
type Action string

const (
	ActionDelete      Action = "delete"
	ActionAddPhoto    Action = "add-photo"
	ActionAddLocation Action = "add-location"
)

// ComingSoon is the notice shown for actions that are not built yet.
const ComingSoon = "Coming soon!"

// ActionResult reports the outcome of an action.
type ActionResult struct {
	Action    Action
	Available bool
	Notice    string
}

// Editor is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	mode      Mode
	form      entries.Draft
	baseline  entries.Draft
	snapshot  entries.Draft
	saves     []SaveOp
	nextSeq   uint64
	committed uint64
	lastErr   error
}

// New returns an editor in Viewing mode seeded with draft.
func New(draft entries.Draft) *Editor {
	return &Editor{
		mode:     Viewing,
		form:     draft.Clone(),
		baseline: draft.Clone(),
	}
}

// FromSerialized hydrates s and seeds a new editor with it.
func FromSerialized(s entries.SerializedEntry) (*Editor, error) {
	draft, err := entries.Hydrate(s)
	if err != nil {
		return nil, err
	}
	return New(draft), nil
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Form returns a copy of the values currently on screen.
func (e *Editor) Form() entries.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form.Clone()
}

// Baseline returns the last values known to be persisted.
func (e *Editor) Baseline() entries.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseline.Clone()
}

// Dirty reports whether the form differs from the persisted values.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.form.Equal(e.baseline)
}

// LastError is the error of the most recent failed save, cleared by the next
// successful one.
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Saves returns every save submitted so far, oldest first.
func (e *Editor) Saves() []SaveOp {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SaveOp, len(e.saves))
	for i, op := range e.saves {
		op.Form = op.Form.Clone()
		out[i] = op
	}
	return out
}

// Pending reports how many saves await Resolve.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, op := range e.saves {
		if op.State == Pending {
			n++
		}
	}
	return n
}

// EnterEdit switches to Editing and remembers the form so Discard can restore it.
func (e *Editor) EnterEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Viewing {
		return ErrInvalidTransition
	}
	e.snapshot = e.form.Clone()
	e.mode = Editing
	return nil
}

// Discard leaves Editing and restores the values from before EnterEdit.
func (e *Editor) Discard() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return ErrInvalidTransition
	}
	e.form = e.snapshot.Clone()
	e.mode = Viewing
	return nil
}

// Commit leaves Editing and returns the pending save the caller must send.
// The mode changes before the save is sent; report the outcome with Resolve.
func (e *Editor) Commit() (SaveOp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return SaveOp{}, ErrInvalidTransition
	}
	e.nextSeq++
	op := SaveOp{Seq: e.nextSeq, Form: e.form.Clone(), State: Pending}
	e.saves = append(e.saves, op)
	e.mode = Viewing
	op.Form = op.Form.Clone()
	return op, nil
}

// Toggle is EnterEdit from Viewing and Discard from Editing.
func (e *Editor) Toggle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == Viewing {
		e.snapshot = e.form.Clone()
		e.mode = Editing
		return nil
	}
	e.form = e.snapshot.Clone()
	e.mode = Viewing
	return nil
}

// Resolve records the outcome of save seq. A nil err commits it; otherwise it
// fails, and if it was the latest save and the form is not being edited the
// form rolls back to the persisted values. A commit that lands after the
// latest save already failed moves a rolled back form along with the baseline.
func (e *Editor) Resolve(seq uint64, err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i := range e.saves {
		if e.saves[i].Seq == seq {
			idx = i
			break
		}
	}
	if idx < 0 || e.saves[idx].State != Pending {
		return ErrUnknownSave
	}
	op := &e.saves[idx]

	if err == nil {
		op.State = Committed
		if seq > e.committed {
			e.committed = seq
			e.baseline = op.Form.Clone()
			if e.mode == Viewing && e.latestFailed() && !e.pendingAfter(seq) {
				e.form = e.baseline.Clone()
			}
		}
		e.lastErr = nil
		return nil
	}

	op.State = Failed
	op.Err = err
	e.lastErr = err
	if seq == e.nextSeq && e.mode == Viewing {
		e.form = e.baseline.Clone()
	}
	return nil
}

func (e *Editor) latestFailed() bool {
	return len(e.saves) > 0 && e.saves[len(e.saves)-1].State == Failed
}

func (e *Editor) pendingAfter(seq uint64) bool {
	for _, op := range e.saves {
		if op.Seq > seq && op.State == Pending {
			return true
		}
	}
	return false
}

// Replace reseeds the editor with a freshly loaded entry. It is refused
// while editing.
func (e *Editor) Replace(draft entries.Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == Editing {
		return ErrInvalidTransition
	}
	e.form = draft.Clone()
	e.baseline = draft.Clone()
	return nil
}

func (e *Editor) SetTitle(title string) error {
	return e.set(func(d *entries.Draft) { d.Title = title })
}

func (e *Editor) SetText(text string) error {
	return e.set(func(d *entries.Draft) { d.Text = text })
}

func (e *Editor) SetDate(date time.Time) error {
	return e.set(func(d *entries.Draft) { d.Date = date.UTC().Truncate(time.Millisecond) })
}

// SetTags replaces the tag list. Tags are normalized the way the store keeps them.
func (e *Editor) SetTags(tags []string) error {
	normalized := entries.NormalizeTags(tags)
	return e.set(func(d *entries.Draft) { d.Tags = normalized })
}

func (e *Editor) set(apply func(*entries.Draft)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return ErrNotEditing
	}
	apply(&e.form)
	return nil
}

// Delete is not built yet.
func (e *Editor) Delete() (ActionResult, error) {
	return comingSoon(ActionDelete)
}

// AddPhoto is not built yet.
func (e *Editor) AddPhoto() (ActionResult, error) {
	return comingSoon(ActionAddPhoto)
}

// AddLocation is not built yet.
func (e *Editor) AddLocation() (ActionResult, error) {
	return comingSoon(ActionAddLocation)
}

func comingSoon(a Action) (ActionResult, error) {
	return ActionResult{Action: a, Available: false, Notice: ComingSoon}, entries.ErrNotYetAvailable
}
