// Package tui is the terminal driver for a controller.Session. It only maps
// keys to commands and draws the session's rows; all state lives in the
// session.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hayeah/treetxt/internal/controller"
	"github.com/hayeah/treetxt/internal/selection"
	"github.com/hayeah/treetxt/internal/tree"
)

// ExitState indicates how the program is exiting
type ExitState int

const (
	ExitStateNone    ExitState = iota // Not exiting
	ExitStateQuit                     // q, esc, ctrl+c
	ExitStateConfirm                  // enter
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true)
	cursorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dirStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	hiddenStyle       = lipgloss.NewStyle().Faint(true)
	inaccessibleStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the Bubble Tea model.
type Model struct {
	session  *controller.Session
	keys     keyMap
	help     help.Model
	viewport viewport.Model
	ready    bool

	exitState ExitState
	lastErr   error
}

// New creates a model over a started session.
func New(s *controller.Session) Model {
	return Model{
		session:  s,
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(0, 0), // sized on tea.WindowSizeMsg
	}
}

// ExitState reports why the program stopped.
func (m Model) ExitState() ExitState { return m.exitState }

// Run drives the session until the user confirms or quits. It does not
// dispatch the final Confirm or Quit; the caller does, after the terminal is
// restored.
func Run(s *controller.Session) (ExitState, error) {
	// Output TUI to stderr so the document can be piped from stdout
	p := tea.NewProgram(New(s), tea.WithOutput(os.Stderr), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return ExitStateNone, err
	}
	fm, ok := final.(Model)
	if !ok {
		return ExitStateNone, fmt.Errorf("could not get final model state")
	}
	return fm.exitState, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.exitState != ExitStateNone {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 3
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.viewport.YPosition = headerHeight
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.exitState = ExitStateQuit
			return m, tea.Quit
		case key.Matches(msg, m.keys.Confirm):
			m.exitState = ExitStateConfirm
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			m.dispatch(selection.MoveCursor(-1))
		case key.Matches(msg, m.keys.Down):
			m.dispatch(selection.MoveCursor(1))
		case key.Matches(msg, m.keys.PageUp):
			m.dispatch(selection.MoveCursor(-m.pageSize()))
		case key.Matches(msg, m.keys.PageDown):
			m.dispatch(selection.MoveCursor(m.pageSize()))
		case key.Matches(msg, m.keys.Home):
			m.dispatch(selection.MoveCursor(-len(m.session.Rows())))
		case key.Matches(msg, m.keys.End):
			m.dispatch(selection.MoveCursor(len(m.session.Rows())))
		case key.Matches(msg, m.keys.Expand):
			if row, ok := m.focusedRow(); ok && row.Kind == tree.Directory && !row.Expanded {
				m.dispatch(selection.ToggleExpand(row.ID))
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapse()
		case key.Matches(msg, m.keys.Toggle):
			if row, ok := m.focusedRow(); ok {
				m.dispatch(selection.ToggleSelect(row.ID))
			}
		case key.Matches(msg, m.keys.SelectAll):
			m.dispatch(selection.SelectAllVisible())
		case key.Matches(msg, m.keys.DeselectAll):
			m.dispatch(selection.DeselectAll())
		case key.Matches(msg, m.keys.ToggleHidden):
			m.dispatch(selection.ToggleHidden())
		default:
			return m, nil
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// collapse folds the focused directory, or jumps to the parent when the
// focused row is a file or an already collapsed directory.
func (m *Model) collapse() {
	row, ok := m.focusedRow()
	if !ok {
		return
	}
	if row.Kind == tree.Directory && row.Expanded {
		m.dispatch(selection.ToggleExpand(row.ID))
		return
	}
	n, _ := m.session.Tree.Node(row.ID)
	if n.Parent == tree.RootID {
		return
	}
	rows := m.session.Rows()
	cursor := m.session.State().Cursor
	for i := cursor - 1; i >= 0; i-- {
		if rows[i].ID == n.Parent {
			m.dispatch(selection.MoveCursor(i - cursor))
			return
		}
	}
}

func (m *Model) dispatch(cmd selection.Command) {
	_, err := m.session.Dispatch(cmd)
	m.lastErr = err
}

func (m Model) focusedRow() (selection.Row, bool) {
	for _, r := range m.session.Rows() {
		if r.Focused {
			return r, true
		}
	}
	return selection.Row{}, false
}

func (m Model) pageSize() int {
	return max(m.viewport.Height-1, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := titleStyle.Render("treetxt") + " " + m.session.RootKey() + "\n"

	st := m.session.State()
	hidden := "hidden files off"
	if st.HiddenVisible {
		hidden = "hidden files on"
	}
	status := statusStyle.Render(fmt.Sprintf("%d selected, %s, output %s",
		st.Selected.Len(), hidden, m.session.Options.Output))
	if m.lastErr != nil {
		status = errorStyle.Render(m.lastErr.Error())
	}

	return header + "\n" + m.viewport.View() + "\n" + status + "\n" + m.help.View(m.keys)
}

// refresh redraws the rows and scrolls the cursor into view.
func (m *Model) refresh() {
	rows := m.session.Rows()
	var sb strings.Builder
	cursorLine := 0
	for i, r := range rows {
		if r.Focused {
			cursorLine = i
		}
		sb.WriteString(renderRow(r))
		sb.WriteString("\n")
	}
	if len(rows) == 0 {
		sb.WriteString(statusStyle.Render("(empty directory)") + "\n")
	}
	m.viewport.SetContent(sb.String())

	top := m.viewport.YOffset
	bottom := m.viewport.YOffset + m.viewport.Height - 1
	if cursorLine < top {
		m.viewport.SetYOffset(cursorLine)
	} else if cursorLine > bottom {
		m.viewport.SetYOffset(cursorLine - m.viewport.Height + 1)
	}
}

func renderRow(r selection.Row) string {
	cursor := "  "
	if r.Focused {
		cursor = "> "
	}

	marker := "  "
	name := r.Name
	style := lipgloss.NewStyle()
	switch r.Kind {
	case tree.Directory:
		marker = "▶ "
		if r.Expanded {
			marker = "▼ "
		}
		name += "/"
		style = dirStyle
	case tree.Inaccessible:
		name += " (inaccessible)"
		style = inaccessibleStyle
	}
	if r.Hidden {
		style = style.Inherit(hiddenStyle)
	}

	line := fmt.Sprintf("%s%s%s%s %s", cursor, strings.Repeat("  ", r.Depth), marker, checkbox(r.Mark), name)
	if r.Focused {
		return cursorStyle.Render(line)
	}
	return style.Render(line)
}

func checkbox(mark selection.TriState) string {
	switch mark {
	case selection.Selected:
		return "[x]"
	case selection.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}
