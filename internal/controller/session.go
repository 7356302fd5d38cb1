// Package controller drives one selection session: it threads the selection
// state through every command, restores and saves the project snapshot and
// hands the result to the exporter.
package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/export"
	"github.com/hayeah/treetxt/internal/selection"
	"github.com/hayeah/treetxt/internal/set"
	"github.com/hayeah/treetxt/internal/state"
	"github.com/hayeah/treetxt/internal/tree"
)

// StdoutPath as the output destination writes the document to stdout.
const StdoutPath = "-"

// Options configures where and how a session exports.
type Options struct {
	Output    string
	Format    config.OutputFormat
	Clipboard bool
}

// Outcome tells the driver what happened after a command.
type Outcome int

const (
	Continue Outcome = iota
	Exported
	Quit
)

// Report describes a finished export.
type Report struct {
	Destination string
	Files       []string
	Bytes       int
	Copied      bool
}

// Session owns the state of one interactive or explicit run.
type Session struct {
	Tree     *tree.Model
	Engine   *selection.Engine
	Store    state.Store // nil disables persistence
	Exporter *export.Exporter
	Options  Options
	Logger   *slog.Logger

	Stdout          io.Writer
	CopyToClipboard func(string) error

	st     selection.State
	report *Report
}

// NewSession creates a session over t. Call Start before dispatching.
func NewSession(t *tree.Model, store state.Store, exp *export.Exporter, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if exp == nil {
		exp = export.New(logger, nil)
	}
	return &Session{
		Tree:            t,
		Engine:          selection.NewEngine(t),
		Store:           store,
		Exporter:        exp,
		Options:         opts,
		Logger:          logger,
		Stdout:          os.Stdout,
		CopyToClipboard: clipboard.WriteAll,
		st:              selection.NewState(),
	}
}

// RootKey identifies the project in the state store.
func (s *Session) RootKey() string { return s.Tree.Root() }

// Start restores the persisted snapshot for this root, if any.
func (s *Session) Start() {
	if s.Store == nil {
		return
	}
	s.st = s.Restore(s.Store.Load(s.RootKey()))
	s.Logger.Debug("restored state", "root", s.RootKey(), "selected", s.st.Selected.Len())
}

// State returns the current state value.
func (s *Session) State() selection.State { return s.st }

// Rows is the projection drivers draw.
func (s *Session) Rows() []selection.Row { return s.Engine.Rows(s.st) }

// Focused returns the node under the cursor.
func (s *Session) Focused() (tree.NodeID, bool) { return s.Engine.Focused(s.st) }

// LastReport returns the report of the latest export, or nil.
func (s *Session) LastReport() *Report { return s.report }

// Dispatch applies one command. Confirm and Quit both save the snapshot;
// Confirm then exports.
func (s *Session) Dispatch(cmd selection.Command) (Outcome, error) {
	next, err := s.Engine.Apply(s.st, cmd)
	if err != nil {
		return Continue, err
	}
	s.st = next

	switch cmd.Op {
	case selection.OpQuit:
		s.persistOrWarn()
		return Quit, nil
	case selection.OpConfirm:
		s.persistOrWarn()
		report, err := s.Export()
		if err != nil {
			return Quit, err
		}
		s.report = report
		return Exported, nil
	default:
		return Continue, nil
	}
}

func (s *Session) persistOrWarn() {
	if err := s.Persist(); err != nil {
		s.Logger.Warn("failed to save selection state", "err", err)
	}
}

// Persist saves the snapshot of the current state.
func (s *Session) Persist() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Save(s.Snapshot())
}

// Snapshot captures the persisted part of the current state.
func (s *Session) Snapshot() state.ProjectState {
	ps := state.Empty(s.RootKey())
	ps.SelectedFiles = set.Sorted(s.st.Selected)
	ps.HiddenVisible = s.st.HiddenVisible
	for i := 1; i < s.Tree.Len(); i++ {
		n, _ := s.Tree.Node(tree.NodeID(i))
		if n.Kind == tree.Directory && n.Expanded {
			ps.ExpandedDirs = append(ps.ExpandedDirs, n.RelPath)
		}
	}
	return state.Normalize(ps)
}

// Restore rebuilds a state from a snapshot. Saved paths that no longer
// resolve to a file inside the root are dropped; saved directories are
// re-expanded parents first.
func (s *Session) Restore(ps state.ProjectState) selection.State {
	st := selection.NewState()
	st.HiddenVisible = ps.HiddenVisible

	for _, p := range ps.SelectedFiles {
		n, err := s.resolve(p)
		if err != nil || n.Kind != tree.File {
			s.Logger.Debug("dropping saved selection", "path", p, "err", err)
			continue
		}
		st.Selected.Add(n.Key)
	}

	dirs := append([]string(nil), ps.ExpandedDirs...)
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") < strings.Count(dirs[j], "/")
	})
	for _, p := range dirs {
		n, err := s.resolveAsWritten(p)
		if err != nil || n.Kind != tree.Directory {
			continue
		}
		if err := s.Tree.Expand(n.ID); err != nil {
			s.Logger.Debug("cannot expand saved directory", "path", p, "err", err)
		}
	}
	return st
}

// resolve finds the node for the canonical form of p.
func (s *Session) resolve(p string) (tree.Node, error) {
	rel, err := tree.Canonicalize(s.Tree.Root(), p)
	if err != nil {
		return tree.Node{}, err
	}
	return s.lookup(rel)
}

// resolveAsWritten finds the node at p's lexical path, so a saved expansion
// of a symlinked directory reopens the link rather than its target. p must
// still canonicalize inside the root.
func (s *Session) resolveAsWritten(p string) (tree.Node, error) {
	if _, err := tree.Canonicalize(s.Tree.Root(), p); err != nil {
		return tree.Node{}, err
	}
	return s.lookup(path.Clean(filepath.ToSlash(p)))
}

func (s *Session) lookup(rel string) (tree.Node, error) {
	id, err := s.Tree.Lookup(rel)
	if err != nil {
		return tree.Node{}, err
	}
	n, _ := s.Tree.Node(id)
	return n, nil
}

// Export renders the current selection and delivers it.
func (s *Session) Export() (*Report, error) {
	return s.export(set.Sorted(s.st.Selected), s.st.HiddenVisible)
}

// RunExplicit exports a given file list without the interactive loop.
// Entries that escape the root, are missing or are not files are skipped with
// a warning. Nothing is persisted.
func (s *Session) RunExplicit(paths []string) (*Report, error) {
	var files []string
	for _, p := range paths {
		n, err := s.resolve(p)
		switch {
		case err != nil:
			s.Logger.Warn("skipping file", "path", p, "err", err)
		case n.Kind != tree.File:
			s.Logger.Warn("skipping file", "path", p, "err", fmt.Errorf("%s is a %s", n.RelPath, n.Kind))
		default:
			files = append(files, n.Key)
		}
	}
	if len(files) == 0 {
		return nil, export.ErrNoSelection
	}
	report, err := s.export(files, false)
	if err != nil {
		return nil, err
	}
	s.report = report
	return report, nil
}

func (s *Session) export(selected []string, hiddenVisible bool) (*Report, error) {
	files := s.Exporter.Admit(s.Tree, selected)
	in := export.Input{Tree: s.Tree, Selected: files, HiddenVisible: hiddenVisible}
	doc, err := s.Exporter.Render(in, s.Options.Format)
	if err != nil {
		return nil, err
	}

	dest, err := s.deliver(doc)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Destination: dest,
		Files:       files,
		Bytes:       len(doc),
	}

	if s.Options.Clipboard && s.CopyToClipboard != nil {
		if err := s.CopyToClipboard(doc); err != nil {
			s.Logger.Warn("failed to copy output to clipboard", "err", err)
		} else {
			report.Copied = true
		}
	}
	s.Logger.Info("exported", "files", len(report.Files), "bytes", report.Bytes, "output", report.Destination)
	return report, nil
}

// deliver writes doc to the configured destination and returns its name.
func (s *Session) deliver(doc string) (string, error) {
	out := s.Options.Output
	if out == "" || out == StdoutPath {
		return StdoutPath, s.Exporter.WriteTo(s.Stdout, "stdout", doc)
	}
	if _, err := os.Stat(out); err == nil {
		s.Logger.Warn("overwriting existing output file", "path", out)
	} else if !errors.Is(err, os.ErrNotExist) {
		return out, &export.OutputWriteError{Path: out, Err: err}
	}
	return out, s.Exporter.WriteFile(out, doc)
}
