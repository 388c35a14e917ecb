package editor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/daybook/pkg/entries"
)

func seed() entries.Draft {
	return entries.Draft{
		UUID:  uuid.MustParse("6f1c1d1e-8d7b-4a8f-9f38-2c1d2a3b4c5d"),
		Title: "Lake day",
		Date:  time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC),
		Text:  "<p>Cold</p>",
		Tags:  []string{"travel"},
	}
}

func TestNewStartsViewing(t *testing.T) {
	e := New(seed())
	assert.Equal(t, Viewing, e.Mode())
	assert.False(t, e.Dirty())
	assert.True(t, seed().Equal(e.Form()))
}

func TestFromSerialized(t *testing.T) {
	e, err := FromSerialized(entries.SerializedEntry{
		UUID: seed().UUID.String(),
		Date: "2023-01-05T00:00:00.000Z",
		Tags: []string{"travel"},
	})
	require.NoError(t, err)
	assert.True(t, e.Form().Date.Equal(seed().Date))

	_, err = FromSerialized(entries.SerializedEntry{UUID: "x"})
	assert.Error(t, err)
}

func TestSettersRequireEditing(t *testing.T) {
	e := New(seed())
	assert.ErrorIs(t, e.SetTitle("x"), ErrNotEditing)
	assert.ErrorIs(t, e.SetText("x"), ErrNotEditing)
	assert.ErrorIs(t, e.SetDate(time.Now()), ErrNotEditing)
	assert.ErrorIs(t, e.SetTags([]string{"x"}), ErrNotEditing)
	assert.True(t, seed().Equal(e.Form()), "rejected setters must not change the form")
}

func TestTransitions(t *testing.T) {
	e := New(seed())
	assert.ErrorIs(t, e.Discard(), ErrInvalidTransition)
	_, err := e.Commit()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, e.EnterEdit())
	assert.Equal(t, Editing, e.Mode())
	assert.ErrorIs(t, e.EnterEdit(), ErrInvalidTransition)

	require.NoError(t, e.Toggle())
	assert.Equal(t, Viewing, e.Mode())
	require.NoError(t, e.Toggle())
	assert.Equal(t, Editing, e.Mode())
}

func TestDiscardRestoresValues(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("Changed"))
	require.NoError(t, e.SetTags([]string{" a ", "a", "b"}))
	assert.True(t, e.Dirty())
	assert.Equal(t, []string{"a", "b"}, e.Form().Tags)

	require.NoError(t, e.Discard())
	assert.Equal(t, Viewing, e.Mode())
	assert.Equal(t, "Lake day", e.Form().Title)
	assert.False(t, e.Dirty())
}

func TestCommitIsOptimistic(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetText("Warmer"))

	op, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, Viewing, e.Mode(), "mode flips before the save completes")
	assert.Equal(t, Pending, op.State)
	assert.Equal(t, "Warmer", op.Form.Text)
	assert.Equal(t, "Warmer", e.Form().Text)
	assert.Equal(t, 1, e.Pending())
	assert.True(t, e.Dirty())

	require.NoError(t, e.Resolve(op.Seq, nil))
	assert.Equal(t, 0, e.Pending())
	assert.False(t, e.Dirty(), "a committed save moves the baseline")
	assert.Equal(t, "Warmer", e.Baseline().Text)
	assert.Equal(t, Committed, e.Saves()[0].State)
	assert.ErrorIs(t, e.Resolve(op.Seq, nil), ErrUnknownSave)
}

func TestFailedSaveRollsBack(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("Doomed"))
	op, err := e.Commit()
	require.NoError(t, err)

	saveErr := errors.New("server unavailable")
	require.NoError(t, e.Resolve(op.Seq, saveErr))

	assert.Equal(t, Viewing, e.Mode())
	assert.Equal(t, "Lake day", e.Form().Title)
	assert.ErrorIs(t, e.LastError(), saveErr)
	saves := e.Saves()
	require.Len(t, saves, 1)
	assert.Equal(t, Failed, saves[0].State)
	assert.ErrorIs(t, saves[0].Err, saveErr)
}

func TestFailedSaveDoesNotClobberNewEdits(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("First"))
	op, err := e.Commit()
	require.NoError(t, err)

	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("Second"))

	require.NoError(t, e.Resolve(op.Seq, errors.New("boom")))
	assert.Equal(t, Editing, e.Mode())
	assert.Equal(t, "Second", e.Form().Title, "edits in progress survive an older failure")
}

func TestOlderFailureAfterNewerSaveKeepsForm(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("One"))
	first, err := e.Commit()
	require.NoError(t, err)

	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("Two"))
	second, err := e.Commit()
	require.NoError(t, err)

	require.NoError(t, e.Resolve(second.Seq, nil))
	require.NoError(t, e.Resolve(first.Seq, errors.New("late failure")))

	assert.Equal(t, "Two", e.Form().Title)
	assert.Equal(t, "Two", e.Baseline().Title)
	assert.Error(t, e.LastError())
}

func TestOlderSuccessAfterNewerFailureShowsStoredValues(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("A"))
	first, err := e.Commit()
	require.NoError(t, err)

	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("B"))
	second, err := e.Commit()
	require.NoError(t, err)

	require.NoError(t, e.Resolve(second.Seq, errors.New("conflict")))
	assert.Equal(t, "Lake day", e.Form().Title)

	require.NoError(t, e.Resolve(first.Seq, nil))
	assert.Equal(t, Viewing, e.Mode())
	assert.Equal(t, "A", e.Baseline().Title)
	assert.Equal(t, "A", e.Form().Title)
	assert.False(t, e.Dirty())
}

func TestOlderSuccessWaitsForPendingSaves(t *testing.T) {
	e := New(seed())
	var ops []SaveOp
	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, e.EnterEdit())
		require.NoError(t, e.SetTitle(title))
		op, err := e.Commit()
		require.NoError(t, err)
		ops = append(ops, op)
	}

	require.NoError(t, e.Resolve(ops[2].Seq, errors.New("conflict")))
	require.NoError(t, e.Resolve(ops[0].Seq, nil))
	assert.Equal(t, "Lake day", e.Form().Title, "B is still in flight")

	require.NoError(t, e.Resolve(ops[1].Seq, nil))
	assert.Equal(t, "B", e.Form().Title)
	assert.False(t, e.Dirty())
}

func TestOlderSuccessDoesNotClobberNewEdits(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("A"))
	first, _ := e.Commit()
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("B"))
	second, _ := e.Commit()
	require.NoError(t, e.Resolve(second.Seq, errors.New("conflict")))

	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("C"))
	require.NoError(t, e.Resolve(first.Seq, nil))

	assert.Equal(t, Editing, e.Mode())
	assert.Equal(t, "C", e.Form().Title)
}

func TestOutOfOrderSuccessKeepsNewestBaseline(t *testing.T) {
	e := New(seed())
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("One"))
	first, _ := e.Commit()
	require.NoError(t, e.EnterEdit())
	require.NoError(t, e.SetTitle("Two"))
	second, _ := e.Commit()

	require.NoError(t, e.Resolve(second.Seq, nil))
	require.NoError(t, e.Resolve(first.Seq, nil))
	assert.Equal(t, "Two", e.Baseline().Title)
}

func TestPlaceholderActions(t *testing.T) {
	e := New(seed())
	for _, act := range []func() (ActionResult, error){e.Delete, e.AddPhoto, e.AddLocation} {
		res, err := act()
		assert.ErrorIs(t, err, entries.ErrNotYetAvailable)
		assert.False(t, res.Available)
		assert.Equal(t, ComingSoon, res.Notice)
	}
	assert.Equal(t, Viewing, e.Mode())
	assert.True(t, seed().Equal(e.Form()))
}

func TestReplace(t *testing.T) {
	e := New(seed())
	fresh := seed()
	fresh.Title = "From server"
	require.NoError(t, e.Replace(fresh))
	assert.Equal(t, "From server", e.Form().Title)
	assert.False(t, e.Dirty())

	require.NoError(t, e.EnterEdit())
	assert.ErrorIs(t, e.Replace(seed()), ErrInvalidTransition)
}

func TestConcurrentResolve(t *testing.T) {
	e := New(seed())
	var ops []SaveOp
	for i := 0; i < 20; i++ {
		require.NoError(t, e.EnterEdit())
		require.NoError(t, e.SetText(time.Duration(i).String()))
		op, err := e.Commit()
		require.NoError(t, err)
		ops = append(ops, op)
	}

	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			_ = e.Resolve(seq, nil)
			_ = e.Form()
			_ = e.Dirty()
		}(op.Seq)
	}
	wg.Wait()

	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, ops[len(ops)-1].Form.Text, e.Baseline().Text)
}

func TestConcurrentToggle(t *testing.T) {
	e := New(seed())
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Toggle()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, Viewing, e.Mode(), "an even number of toggles ends where it started")
	assert.True(t, seed().Equal(e.Form()))
}
