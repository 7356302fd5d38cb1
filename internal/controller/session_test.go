package controller

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	testassert "github.com/hayeah/treetxt/internal/assert"
	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/export"
	"github.com/hayeah/treetxt/internal/selection"
	"github.com/hayeah/treetxt/internal/state"
	"github.com/hayeah/treetxt/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDirectory(t *testing.T, files map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()
	for relPath, content := range files {
		path := filepath.Join(tempDir, relPath)
		if strings.HasSuffix(relPath, "/") {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return tempDir
}

var sampleProject = map[string]string{
	"README.txt":   "readme\n",
	"src/main.txt": "main\n",
	"src/lib.txt":  "lib\n",
}

type fixture struct {
	root   string
	store  *state.FileStore
	output string
	stdout *bytes.Buffer
	copied []string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	return &fixture{
		root:   createTestDirectory(t, files),
		store:  state.NewFileStore(filepath.Join(t.TempDir(), "state.toml"), nil),
		output: filepath.Join(t.TempDir(), "out.txt"),
		stdout: &bytes.Buffer{},
	}
}

// session opens a fresh tree and session, like a new process would.
func (f *fixture) session(t *testing.T, opts Options) *Session {
	t.Helper()
	m, err := tree.LoadRoot(f.root, tree.Options{})
	require.NoError(t, err)
	if opts.Output == "" {
		opts.Output = f.output
	}
	if opts.Format == (config.OutputFormat{}) {
		opts.Format = config.DefaultOutputFormat()
	}
	exp := &export.Exporter{Now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }}
	s := NewSession(m, f.store, exp, opts, nil)
	s.Stdout = f.stdout
	s.CopyToClipboard = func(doc string) error {
		f.copied = append(f.copied, doc)
		return nil
	}
	s.Start()
	return s
}

func lookup(t *testing.T, s *Session, rel string) tree.NodeID {
	t.Helper()
	id, err := s.Tree.Lookup(rel)
	require.NoError(t, err)
	return id
}

func dispatch(t *testing.T, s *Session, cmds ...selection.Command) Outcome {
	t.Helper()
	var out Outcome
	for _, cmd := range cmds {
		var err error
		out, err = s.Dispatch(cmd)
		require.NoError(t, err, cmd.Op.String())
	}
	return out
}

func TestSession_ConfirmExportsAndPersists(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{})
	src := lookup(t, s, "src")

	out := dispatch(t, s,
		selection.ToggleExpand(src),
		selection.SelectAllVisible(),
		selection.ToggleSelect(lookup(t, s, "README.txt")),
	)
	assert.Equal(t, Continue, out)

	out = dispatch(t, s, selection.Confirm())
	assert.Equal(t, Exported, out)

	report := s.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, []string{"src/lib.txt", "src/main.txt"}, report.Files)
	assert.Equal(t, f.output, report.Destination)
	assert.False(t, report.Copied)

	doc, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "│   ├── lib.txt ✓\n│   └── main.txt ✓\n└── README.txt\n")
	assert.Less(t, strings.Index(string(doc), "File: src/lib.txt"), strings.Index(string(doc), "File: src/main.txt"))
	assert.Equal(t, len(doc), report.Bytes)

	saved := f.store.Load(s.RootKey())
	assert.Equal(t, []string{"src/lib.txt", "src/main.txt"}, saved.SelectedFiles)
	assert.Equal(t, []string{"src"}, saved.ExpandedDirs)
}

func TestSession_QuitPersistsWithoutExport(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{})

	out := dispatch(t, s, selection.ToggleSelect(lookup(t, s, "README.txt")), selection.ToggleHidden(), selection.Quit())
	assert.Equal(t, Quit, out)
	assert.Nil(t, s.LastReport())
	assert.NoFileExists(t, f.output)

	saved := f.store.Load(s.RootKey())
	assert.Equal(t, []string{"README.txt"}, saved.SelectedFiles)
	assert.True(t, saved.HiddenVisible)
}

func TestSession_RestoresPreviousRun(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a/b/c.txt": "c",
		"a/d.txt":   "d",
		"e.txt":     "e",
	})
	first := f.session(t, Options{})
	dispatch(t, first,
		selection.ToggleExpand(lookup(t, first, "a")),
		selection.ToggleExpand(lookup(t, first, "a/b")),
		selection.ToggleSelect(lookup(t, first, "a/b/c.txt")),
		selection.ToggleSelect(lookup(t, first, "e.txt")),
		selection.Quit(),
	)

	// the selected file disappears between runs
	require.NoError(t, os.Remove(filepath.Join(f.root, "e.txt")))

	second := f.session(t, Options{})
	var paths []string
	for _, r := range second.Rows() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"a", "a/b", "a/b/c.txt", "a/d.txt"}, paths)
	assert.Equal(t, []string{"a/b/c.txt"}, second.Snapshot().SelectedFiles)
}

func TestSession_RestoreRejectsUnsafeAndStalePaths(t *testing.T) {
	f := newFixture(t, map[string]string{"ok.txt": "ok", "dir/x.txt": "x"})
	s := f.session(t, Options{})

	st := s.Restore(state.ProjectState{
		RootKey:       s.RootKey(),
		SelectedFiles: []string{"ok.txt", "../etc/passwd", "missing.txt", "dir", "./ok.txt"},
		ExpandedDirs:  []string{"gone", "ok.txt", "dir"},
	})
	assert.Equal(t, 1, st.Selected.Len())
	assert.True(t, st.Selected.Contains("ok.txt"))

	n, _ := s.Tree.Node(lookup(t, s, "dir"))
	assert.True(t, n.Expanded)
}

func TestSession_Snapshot(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{})
	dispatch(t, s, selection.ToggleExpand(lookup(t, s, "src")), selection.ToggleSelect(lookup(t, s, "src")))

	ps := s.Snapshot()
	ps.RootKey = "<root>"
	testassert.New(t).EqualToJSONFixture("snapshot", ps)
}

func TestSession_ConfirmWithoutSelection(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{})

	_, err := s.Dispatch(selection.Confirm())
	assert.ErrorIs(t, err, export.ErrNoSelection)
	assert.NoFileExists(t, f.output)
}

func TestSession_StdoutAndClipboard(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{Output: StdoutPath, Clipboard: true})

	dispatch(t, s, selection.ToggleSelect(lookup(t, s, "README.txt")), selection.Confirm())

	assert.Contains(t, f.stdout.String(), "File: README.txt")
	require.Len(t, f.copied, 1)
	assert.Equal(t, f.stdout.String(), f.copied[0])
	assert.True(t, s.LastReport().Copied)
	assert.Equal(t, StdoutPath, s.LastReport().Destination)
}

func TestSession_ClipboardFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{Output: StdoutPath, Clipboard: true})
	s.CopyToClipboard = func(string) error { return errors.New("no clipboard") }

	out := dispatch(t, s, selection.ToggleSelect(lookup(t, s, "README.txt")), selection.Confirm())
	assert.Equal(t, Exported, out)
	assert.False(t, s.LastReport().Copied)
}

func TestSession_OverwritesExistingOutput(t *testing.T) {
	f := newFixture(t, sampleProject)
	require.NoError(t, os.WriteFile(f.output, []byte("old"), 0o644))
	s := f.session(t, Options{})

	dispatch(t, s, selection.ToggleSelect(lookup(t, s, "README.txt")), selection.Confirm())
	doc, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(doc), "# Codebase Export\n"))
}

func TestSession_UnwritableOutput(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{Output: filepath.Join(t.TempDir(), "no", "such", "dir", "out.txt")})

	_, err := s.Dispatch(selection.ToggleSelect(lookup(t, s, "README.txt")))
	require.NoError(t, err)
	_, err = s.Dispatch(selection.Confirm())
	var writeErr *export.OutputWriteError
	assert.ErrorAs(t, err, &writeErr)
}

func TestRunExplicit(t *testing.T) {
	f := newFixture(t, sampleProject)
	s := f.session(t, Options{})

	report, err := s.RunExplicit([]string{"src/main.txt", "missing.txt", "src", "../escape.txt", filepath.Join(f.root, "README.txt")})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.txt", "src/main.txt"}, report.Files)

	assert.Empty(t, f.store.Load(s.RootKey()).SelectedFiles, "explicit runs are not remembered")

	_, err = s.RunExplicit([]string{"nope.txt"})
	assert.ErrorIs(t, err, export.ErrNoSelection)
}

func TestSession_SymlinkedDirectorySharesKeys(t *testing.T) {
	f := newFixture(t, sampleProject)
	require.NoError(t, os.Symlink(filepath.Join(f.root, "src"), filepath.Join(f.root, "link")))

	first := f.session(t, Options{})
	link := lookup(t, first, "link")
	dispatch(t, first,
		selection.ToggleExpand(link),
		selection.ToggleSelect(link),
	)
	assert.Equal(t, selection.Selected, first.Engine.TriState(first.State(), lookup(t, first, "src")),
		"selecting through the link selects the target files")
	dispatch(t, first, selection.Confirm())

	report := first.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, []string{"src/lib.txt", "src/main.txt"}, report.Files)

	second := f.session(t, Options{})
	ps := second.Snapshot()
	assert.Equal(t, []string{"src/lib.txt", "src/main.txt"}, ps.SelectedFiles)
	assert.Equal(t, []string{"link"}, ps.ExpandedDirs, "the link itself is reopened")

	report, err := second.RunExplicit([]string{"link/main.txt", "src/main.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.txt"}, report.Files)
}
