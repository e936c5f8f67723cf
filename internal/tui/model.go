// Package tui is the interactive review screen for a rename batch.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"namewise/internal/batch"
	"namewise/internal/errors"
)

type (
	eventMsg    batch.Event
	analyzedMsg struct{ err error }
	appliedMsg  struct {
		summary batch.Summary
		err     error
	}
)

// Model shows a ledger's suggestions while they arrive and lets the user
// approve, reject and edit them before renaming.
type Model struct {
	ctx    context.Context
	ledger *batch.Ledger
	events <-chan batch.Event
	stop   func()

	snap    batch.Snapshot
	cursor  int
	editing bool
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	height    int
	statusMsg string
	summary   *batch.Summary
	err       error
	quitting  bool
}

// New creates a review screen for ledger. The ledger is analyzed when the
// program starts if it has not been already.
func New(ctx context.Context, ledger *batch.Ledger) *Model {
	events, stop := ledger.Subscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusStyle

	in := textinput.New()
	in.Prompt = "new name: "
	in.CharLimit = 120

	return &Model{
		ctx:     ctx,
		ledger:  ledger,
		events:  events,
		stop:    stop,
		snap:    ledger.Snapshot(),
		input:   in,
		spinner: s,
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events)}
	if m.snap.State == batch.Idle {
		cmds = append(cmds, m.analyze(), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func waitForEvent(events <-chan batch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) analyze() tea.Cmd {
	return func() tea.Msg {
		return analyzedMsg{err: m.ledger.Analyze(m.ctx)}
	}
}

func (m *Model) apply() tea.Cmd {
	return func() tea.Msg {
		summary, err := m.ledger.ApplyApproved(m.ctx)
		return appliedMsg{summary: summary, err: err}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case analyzedMsg:
		m.refresh()
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case appliedMsg:
		m.refresh()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		summary := msg.summary
		m.summary = &summary
		m.statusMsg = fmt.Sprintf("%d of %d renamed", summary.Succeeded, summary.Approved)
		m.stop()
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.stop()
		return m, tea.Quit
	}
	if m.summary != nil {
		return m, nil
	}

	m.statusMsg = ""
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		item, ok := m.current()
		if !ok || !item.HasSuggestion {
			m.statusMsg = "No suggestion yet"
			break
		}
		m.ledger.Toggle(item.Entry)
	case key.Matches(msg, m.keys.ApproveAll):
		n := m.ledger.ApproveAll()
		m.statusMsg = fmt.Sprintf("Approved %d", n)
	case key.Matches(msg, m.keys.RejectAll):
		n := m.ledger.RejectAll()
		m.statusMsg = fmt.Sprintf("Rejected %d", n)
	case key.Matches(msg, m.keys.Edit):
		item, ok := m.current()
		if !ok || !item.HasSuggestion {
			m.statusMsg = "No suggestion yet"
			break
		}
		m.editing = true
		m.input.SetValue(item.Suggestion)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Apply):
		switch {
		case m.snap.State != batch.Reviewing:
			m.statusMsg = "Wait for analysis to finish"
		case m.snap.Approved == 0:
			m.statusMsg = "Nothing approved"
		default:
			m.snap.State = batch.Applying
			return m, tea.Batch(m.apply(), m.spinner.Tick)
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.refresh()
	return m, nil
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if item, ok := m.current(); ok {
			m.ledger.EditSuggestion(item.Entry, strings.TrimSpace(m.input.Value()))
		}
		m.stopEditing()
		return m, nil
	case tea.KeyEsc:
		m.stopEditing()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.SetValue("")
	m.refresh()
}

func (m *Model) refresh() {
	m.snap = m.ledger.Snapshot()
	if m.cursor >= len(m.snap.Items) {
		m.cursor = max(0, len(m.snap.Items)-1)
	}
}

func (m *Model) current() (batch.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Items) {
		return batch.Item{}, false
	}
	return m.snap.Items[m.cursor], true
}

func (m *Model) busy() bool {
	return m.snap.State == batch.Analyzing || m.snap.State == batch.Idle || m.snap.State == batch.Applying
}

// Summary returns the apply summary, or nil when the user quit before
// renaming.
func (m *Model) Summary() *batch.Summary {
	return m.summary
}

// Err returns the last error reported by the ledger
func (m *Model) Err() error {
	return m.err
}

// Cursor returns the highlighted row
func (m *Model) Cursor() int {
	return m.cursor
}

// Editing reports whether the name editor is open
func (m *Model) Editing() bool {
	return m.editing
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Review %d files", m.snap.Total)))
	b.WriteString("\n")
	b.WriteString(m.progressLine())
	b.WriteString("\n\n")

	start, end := m.window()
	for i := start; i < end; i++ {
		b.WriteString(m.renderItem(i))
		b.WriteString("\n")
		if i == m.cursor && m.editing {
			b.WriteString("    " + m.input.View() + "\n")
		}
	}

	if m.summary != nil {
		for _, f := range m.summary.Failed {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  %s: %s", f.Entry.Name, f.Kind)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()) + "\n")
	}
	if m.statusMsg != "" {
		style := StatusStyle
		if m.summary != nil {
			style = SuccessStyle
		}
		b.WriteString(style.Render(m.statusMsg) + "\n")
	}
	b.WriteString(m.help.View(m.keys))

	return App.Render(b.String())
}

func (m *Model) progressLine() string {
	switch m.snap.State {
	case batch.Idle, batch.Analyzing:
		return fmt.Sprintf("%s Analyzing %d/%d", m.spinner.View(), m.snap.Processed, m.snap.Total)
	case batch.Applying:
		return fmt.Sprintf("%s Renaming %d files", m.spinner.View(), m.snap.Approved)
	case batch.Completed:
		return StatusStyle.Render("Done")
	default:
		return StatusStyle.Render(fmt.Sprintf("%d of %d approved", m.snap.Approved, m.snap.Total))
	}
}

func (m *Model) renderItem(i int) string {
	item := m.snap.Items[i]

	mark := PendingMark
	switch item.Decision {
	case batch.Approved:
		mark = ApprovedMark
	case batch.Rejected:
		mark = RejectedMark
	}

	suggestion := StatusStyle.Render("…")
	if item.HasSuggestion {
		style := SuggestionStyle
		if item.Fallback {
			style = FallbackStyle
		}
		suggestion = style.Render(item.Suggestion + item.Entry.Ext())
	}

	cursor := "  "
	name := OldNameStyle.Render(item.Entry.Name)
	if i == m.cursor {
		cursor = CursorStyle.Render(">") + " "
	}
	return fmt.Sprintf("%s%s %s → %s", cursor, mark, name, suggestion)
}

// window returns the rows that fit on screen around the cursor
func (m *Model) window() (int, int) {
	n := len(m.snap.Items)
	rows := m.height - 10
	if m.height == 0 || rows >= n || rows < 1 {
		return 0, n
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

// Run shows the review screen until the user renames or quits. It returns
// the apply summary, or nil when nothing was renamed.
func Run(ctx context.Context, ledger *batch.Ledger, opts ...tea.ProgramOption) (*batch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, ledger)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, errors.Wrap(err, "review screen failed")
	}
	fm, ok := final.(*Model)
	if !ok {
		return nil, nil
	}
	return fm.Summary(), fm.Err()
}
