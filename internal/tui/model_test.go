package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/controller"
	"github.com/hayeah/treetxt/internal/set"
	"github.com/hayeah/treetxt/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *controller.Session {
	t.Helper()
	root := t.TempDir()
	for rel, content := range map[string]string{
		"README.txt":   "readme",
		"src/main.txt": "main",
		"src/lib.txt":  "lib",
		".env":         "secret",
	} {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	m, err := tree.LoadRoot(root, tree.Options{})
	require.NoError(t, err)
	s := controller.NewSession(m, nil, nil, controller.Options{Output: "-", Format: config.DefaultOutputFormat()}, nil)
	s.Start()
	return s
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func focusedPath(s *controller.Session) string {
	for _, r := range s.Rows() {
		if r.Focused {
			return r.Path
		}
	}
	return ""
}

func TestModel_NavigateExpandAndSelect(t *testing.T) {
	s := newSession(t)
	m := New(s)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Equal(t, "src", focusedPath(s))

	m, _ = send(t, m, runes("l"), tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "src/lib.txt", focusedPath(s))

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"src/lib.txt"}, set.Sorted(s.State().Selected))
	assert.Contains(t, m.View(), "[-]", "src is partially selected")
	assert.Contains(t, m.View(), "[x]")

	// left on a file jumps to its directory, left again collapses it
	m, _ = send(t, m, runes("h"))
	assert.Equal(t, "src", focusedPath(s))
	m, _ = send(t, m, runes("h"))
	assert.Len(t, s.Rows(), 2)

	_, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, 0, s.State().Selected.Len())
}

func TestModel_HiddenAndSelectAll(t *testing.T) {
	s := newSession(t)
	m := New(s)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 20}, runes("."))
	assert.True(t, s.State().HiddenVisible)
	assert.Len(t, s.Rows(), 3)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Equal(t, []string{".env", "README.txt"}, set.Sorted(s.State().Selected))
	assert.Contains(t, m.View(), "2 selected")
}

func TestModel_ExitStates(t *testing.T) {
	s := newSession(t)

	m, cmd := send(t, New(s), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ExitStateConfirm, m.ExitState())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m, _ = send(t, New(s), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ExitStateQuit, m.ExitState())

	m, _ = send(t, New(s), runes("q"))
	assert.Equal(t, ExitStateQuit, m.ExitState())
	assert.Nil(t, s.LastReport(), "the model never exports by itself")
}

func TestModel_CursorClampsAtEdges(t *testing.T) {
	s := newSession(t)
	m := New(s)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 20}, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, s.State().Cursor)

	_, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, "README.txt", focusedPath(s))
}

func TestModel_ViewBeforeSize(t *testing.T) {
	assert.Equal(t, "Initializing...", New(newSession(t)).View())
}
