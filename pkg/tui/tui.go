package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/unowned-ai/daybook/pkg/editor"
	"github.com/unowned-ai/daybook/pkg/entries"
)

// EntrySource loads and saves entries. Both *entries.Loader and
// *client.Client satisfy it.
type EntrySource interface {
	Load(ctx context.Context, id string) (entries.SerializedEntry, error)
	Update(ctx context.Context, id string, in entries.EntryInput) (entries.SerializedEntry, error)
}

// Creator is implemented by sources that can store new entries.
type Creator interface {
	Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error)
}

type field int

const (
	fieldTitle field = iota
	fieldText
	fieldDate
	fieldTags
	fieldCount
)

type model struct {
	src    EntrySource
	id     string
	editor *editor.Editor

	width  int // Current terminal width (for layout)
	height int // Current terminal height
	err    error

	notFound bool
	quitting bool

	// New entries are created on the first save and updated after that
	isNew          bool
	createInFlight bool
	queued         []editor.SaveOp

	focus      field
	titleInput textinput.Model
	textInput  textarea.Model
	dateInput  textinput.Model
	tagsInput  textinput.Model
	dateErr    string

	notice     string
	noticeKind noticeKind
	noticeID   int
	noticeTTL  time.Duration
}

// Initialize TUI model for the entry id
func initModel(src EntrySource, id string) model {
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.CharLimit = entries.MaxTitleLength
	ti.Cursor.SetMode(cursor.CursorStatic)

	ta := textarea.New()
	ta.Placeholder = "What happened today?"
	ta.ShowLineNumbers = false
	ta.Cursor.SetMode(cursor.CursorStatic)

	di := textinput.New()
	di.Placeholder = "2006-01-02T15:04:05.000Z"
	di.Cursor.SetMode(cursor.CursorStatic)

	tg := textinput.New()
	tg.Placeholder = "comma, separated, tags"
	tg.Cursor.SetMode(cursor.CursorStatic)

	return model{
		src:        src,
		id:         id,
		titleInput: ti,
		textInput:  ta,
		dateInput:  di,
		tagsInput:  tg,
		noticeTTL:  noticeDuration,
	}
}

// Initialize TUI model for a blank entry that starts in edit mode
func newEntryModel(src EntrySource, date time.Time) model {
	draft := entries.Draft{
		UUID: uuid.New(),
		Date: date.UTC().Truncate(time.Millisecond),
		Tags: []string{},
	}
	m := initModel(src, draft.UUID.String())
	m.isNew = true
	m.editor = editor.New(draft)
	_ = m.editor.EnterEdit()
	m = m.fillInputs()
	return m
}

func (m model) Init() tea.Cmd {
	if m.editor != nil {
		return nil
	}
	return loadEntry(m.src, m.id)
}

// Processes events like window resize, loaded data, save outcomes, and key presses
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		mainWidth, sideWidth := m.columnWidths()
		m.titleInput.Width = max(mainWidth-bordersAndPaddingWidth-1, 1)
		m.textInput.SetWidth(max(mainWidth-bordersAndPaddingWidth-1, 1))
		m.textInput.SetHeight(max(m.height-12, 3))
		m.dateInput.Width = max(sideWidth-bordersAndPaddingWidth, 1)
		m.tagsInput.Width = max(sideWidth-bordersAndPaddingWidth, 1)
		return m, nil

	case entryLoadedMsg:
		ed, err := editor.FromSerialized(msg.entry)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.editor = ed
		return m, nil

	case loadFailedMsg:
		if errors.Is(msg.err, entries.ErrEntryNotFound) {
			m.notFound = true
			return m, nil
		}
		m.err = msg.err
		return m, nil

	case saveResultMsg:
		return m.resolveSave(msg)

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.editor == nil {
			// Nothing to edit while loading or after a miss
			if msg.String() == "q" {
				return m.quit()
			}
			return m, nil
		}
		if m.editor.Mode() == editor.Editing {
			return m.updateEditing(msg)
		}
		return m.updateViewing(msg)
	}
	return m, nil
}

func (m model) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "e":
		if err := m.editor.EnterEdit(); err != nil {
			return m, nil
		}
		m = m.fillInputs()
		m.notice = ""
		return m, nil
	case "d":
		return m.placeholder(m.editor.Delete)
	case "p":
		return m.placeholder(m.editor.AddPhoto)
	case "l":
		return m.placeholder(m.editor.AddLocation)
	}
	return m, nil
}

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m = m.focusField((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab":
		m = m.focusField((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "esc":
		if m.isNew && !m.hasSaves() {
			// A blank entry that was never saved has nothing to view
			return m.quit()
		}
		_ = m.editor.Discard()
		m = m.blurInputs()
		m.dateErr = ""
		return m, nil
	case "ctrl+p":
		return m.placeholder(m.editor.AddPhoto)
	case "ctrl+l":
		return m.placeholder(m.editor.AddLocation)
	}

	// Route character input to the focused field and mirror it into the form
	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.titleInput, cmd = m.titleInput.Update(msg)
		_ = m.editor.SetTitle(m.titleInput.Value())
	case fieldText:
		m.textInput, cmd = m.textInput.Update(msg)
		_ = m.editor.SetText(m.textInput.Value())
	case fieldDate:
		m.dateInput, cmd = m.dateInput.Update(msg)
		date, err := entries.ParseDate(strings.TrimSpace(m.dateInput.Value()))
		if err != nil {
			m.dateErr = "must be an RFC 3339 timestamp"
		} else {
			m.dateErr = ""
			_ = m.editor.SetDate(date)
		}
	case fieldTags:
		m.tagsInput, cmd = m.tagsInput.Update(msg)
		_ = m.editor.SetTags(strings.Split(m.tagsInput.Value(), ","))
	}
	return m, cmd
}

// Leave edit mode right away and send the save in the background
func (m model) submit() (tea.Model, tea.Cmd) {
	if m.dateErr != "" {
		return m.setNotice("Fix the date before saving", noticeFailure)
	}
	op, err := m.editor.Commit()
	if err != nil {
		return m, nil
	}
	m = m.blurInputs()

	m, expire := m.setNotice("Saving...", noticeInfo)
	m, save := m.dispatch(op)
	return m, tea.Batch(expire, save)
}

// Route a save to Create or Update. Saves submitted while the first create
// is in flight wait for it.
func (m model) dispatch(op editor.SaveOp) (model, tea.Cmd) {
	if !m.isNew {
		return m, updateEntry(m.src, op)
	}
	creator, ok := m.src.(Creator)
	if !ok {
		_ = m.editor.Resolve(op.Seq, entries.ErrNotYetAvailable)
		return m.setNotice("Save failed: "+describeError(entries.ErrNotYetAvailable), noticeFailure)
	}
	if m.createInFlight {
		m.queued = append(m.queued, op)
		return m, nil
	}
	m.createInFlight = true
	return m, createEntry(creator, op)
}

func (m model) resolveSave(msg saveResultMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.created {
		m.createInFlight = false
		if msg.err == nil {
			m.isNew = false
		}
	}

	if err := m.editor.Resolve(msg.seq, msg.err); err == nil {
		var notice tea.Cmd
		if msg.err == nil {
			m = m.adoptSaved(msg)
			m, notice = m.setNotice("Saved", noticeSuccess)
		} else {
			m, notice = m.setNotice("Save failed: "+describeError(msg.err), noticeFailure)
		}
		cmds = append(cmds, notice)
	}

	if msg.created {
		queued := m.queued
		m.queued = nil
		for _, op := range queued {
			var cmd tea.Cmd
			m, cmd = m.dispatch(op)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// Take the stored values of the newest save once nothing else is pending,
// so the form shows what the store normalized.
func (m model) adoptSaved(msg saveResultMsg) model {
	saves := m.editor.Saves()
	if len(saves) == 0 || saves[len(saves)-1].Seq != msg.seq {
		return m
	}
	if m.editor.Mode() != editor.Viewing || m.editor.Pending() > 0 {
		return m
	}
	draft, err := entries.Hydrate(msg.entry)
	if err != nil {
		return m
	}
	_ = m.editor.Replace(draft)
	m.id = msg.entry.UUID
	return m
}

func (m model) placeholder(action func() (editor.ActionResult, error)) (tea.Model, tea.Cmd) {
	res, _ := action()
	return m.setNotice(res.Notice, noticeInfo)
}

func (m model) setNotice(text string, kind noticeKind) (model, tea.Cmd) {
	m.noticeID++
	m.notice = text
	m.noticeKind = kind
	return m, expireNotice(m.noticeID, m.noticeTTL)
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	// Exit alt screen before quitting so the goodbye message displays
	return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
}

func (m model) hasSaves() bool {
	return len(m.editor.Saves()) > 0
}

// Copy the form into the inputs and focus the title
func (m model) fillInputs() model {
	form := m.editor.Form()
	m.titleInput.SetValue(form.Title)
	m.textInput.SetValue(form.Text)
	m.dateInput.SetValue(entries.FormatDate(form.Date))
	m.tagsInput.SetValue(strings.Join(form.Tags, ", "))
	m.dateErr = ""
	return m.focusField(fieldTitle)
}

func (m model) focusField(f field) model {
	m = m.blurInputs()
	m.focus = f
	switch f {
	case fieldTitle:
		m.titleInput.Focus()
	case fieldText:
		m.textInput.Focus()
	case fieldDate:
		m.dateInput.Focus()
	case fieldTags:
		m.tagsInput.Focus()
	}
	return m
}

func (m model) blurInputs() model {
	m.titleInput.Blur()
	m.textInput.Blur()
	m.dateInput.Blur()
	m.tagsInput.Blur()
	return m
}

func describeError(err error) string {
	switch {
	case errors.Is(err, entries.ErrEntryNotFound):
		return "entry not found"
	case errors.Is(err, entries.ErrNotYetAvailable):
		return "not yet available"
	default:
		return err.Error()
	}
}

// Assembles the UI string for each frame
func (m model) View() string {
	if m.quitting {
		return "Closing daybook. See you tomorrow.\n"
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	titleText := "Daybook"
	if m.editor != nil {
		titleText = fmt.Sprintf("Daybook - %s", m.editor.Mode())
	}
	titleBar := titleStyle.Width(m.width).Render(titleText)

	if m.editor == nil {
		body := "Loading entry..."
		if m.notFound {
			body = "This page could not be found."
		}
		footer := footerStyle.Render("q: quit")
		return lipgloss.JoinVertical(lipgloss.Left, titleBar, "", textStyle.Render(body), "", footer)
	}

	mainWidth, sideWidth := m.columnWidths()
	editing := m.editor.Mode() == editor.Editing
	form := m.editor.Form()

	// Main column: title and body
	var mainBuilder strings.Builder
	if editing {
		mainBuilder.WriteString(m.label("Title", fieldTitle) + "\n")
		mainBuilder.WriteString(m.titleInput.View() + "\n\n")
		mainBuilder.WriteString(m.label("Text", fieldText) + "\n")
		mainBuilder.WriteString(m.textInput.View())
	} else {
		title := form.Title
		if title == "" {
			title = "Untitled"
		}
		mainBuilder.WriteString(entryTitleStyle.Render(title) + "\n\n")
		mainBuilder.WriteString(textStyle.Width(max(mainWidth-bordersAndPaddingWidth-1, 0)).Render(form.Text))
	}
	mainPanel := mainPanelStyle.Width(mainWidth).Render(mainBuilder.String())

	// Side column: date and tags
	var sideBuilder strings.Builder
	if editing {
		sideBuilder.WriteString(m.label("Date", fieldDate) + "\n")
		sideBuilder.WriteString(m.dateInput.View() + "\n")
		if m.dateErr != "" {
			sideBuilder.WriteString(textRedStyle.Render(m.dateErr) + "\n")
		}
		sideBuilder.WriteString("\n" + m.label("Tags", fieldTags) + "\n")
		sideBuilder.WriteString(m.tagsInput.View())
	} else {
		sideBuilder.WriteString(subtitleStyle.Render("Date") + "\n")
		sideBuilder.WriteString(textStyle.Render(form.Date.Format(humanDateLayout)) + "\n\n")
		sideBuilder.WriteString(subtitleStyle.Render("Tags") + "\n")
		if len(form.Tags) == 0 {
			sideBuilder.WriteString(footerStyle.Render("No tags"))
		}
		for _, tag := range form.Tags {
			sideBuilder.WriteString(tagStyle.Render(tag) + "\n")
		}
	}
	sidePanel := sidePanelStyle.Width(sideWidth).Render(sideBuilder.String())

	columns := lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, sidePanel)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleBar,
		columns,
		colorizeNotice(m.notice, m.noticeKind),
		m.footer(editing),
	)
}

func (m model) label(name string, f field) string {
	if m.focus == f {
		return focusedLabelStyle.Render(name)
	}
	return fieldLabelStyle.Render(name)
}

func (m model) footer(editing bool) string {
	var keys []string
	if editing {
		keys = []string{"tab: next field", "ctrl+s: save", "esc: cancel"}
		keys = append(keys,
			disabledActionStyle.Render("ctrl+p: photo"),
			disabledActionStyle.Render("ctrl+l: location"),
		)
	} else {
		keys = []string{"e: edit"}
		keys = append(keys,
			disabledActionStyle.Render("d: delete"),
			disabledActionStyle.Render("p: photo"),
			disabledActionStyle.Render("l: location"),
		)
		keys = append(keys, "q: quit")
	}
	return footerStyle.Render(strings.Join(keys, "  "))
}

// ShowEditor opens the terminal editor on the entry id.
func ShowEditor(src EntrySource, id string) error {
	p := tea.NewProgram(initModel(src, id), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// ShowNewEntry opens the terminal editor on a blank entry dated now. The
// source must also implement Creator.
func ShowNewEntry(src EntrySource) error {
	if _, ok := src.(Creator); !ok {
		return fmt.Errorf("entry source %T cannot create entries", src)
	}
	p := tea.NewProgram(newEntryModel(src, time.Now()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
