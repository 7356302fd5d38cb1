// Package selection is the navigation and selection state machine over a
// tree.Model. Engine.Apply is a reducer: it takes a State and a Command and
// returns the next State without mutating its input.
package selection

import (
	"fmt"
	"strings"

	"github.com/hayeah/treetxt/internal/set"
	"github.com/hayeah/treetxt/internal/tree"
)

// TriState is the derived selection status of a node.
type TriState int

const (
	Unselected TriState = iota
	Partial
	Selected
)

func (s TriState) String() string {
	switch s {
	case Selected:
		return "selected"
	case Partial:
		return "partial"
	default:
		return "unselected"
	}
}

// State is the value threaded through every command.
type State struct {
	Selected      set.Set[string] // canonical relative file paths
	HiddenVisible bool
	Cursor        int // index into the flattened visible list
}

// NewState returns an empty state.
func NewState() State {
	return State{Selected: set.NewSet[string]()}
}

// Row is the read-only projection of one visible node, as drivers draw it.
type Row struct {
	ID       tree.NodeID
	Name     string
	Path     string
	Depth    int
	Kind     tree.Kind
	Expanded bool
	Hidden   bool
	Focused  bool
	Mark     TriState
}

// Engine applies commands against one tree.
type Engine struct {
	tree *tree.Model
}

// NewEngine creates an engine over t.
func NewEngine(t *tree.Model) *Engine {
	return &Engine{tree: t}
}

// Tree returns the underlying model.
func (e *Engine) Tree() *tree.Model { return e.tree }

// Visible returns the flattened row ids for st.
func (e *Engine) Visible(st State) []tree.NodeID {
	return e.tree.Flatten(st.HiddenVisible)
}

// Focused returns the node under the cursor.
func (e *Engine) Focused(st State) (tree.NodeID, bool) {
	visible := e.Visible(st)
	if len(visible) == 0 {
		return 0, false
	}
	return visible[clamp(st.Cursor, len(visible))], true
}

// Apply returns the state that results from running cmd on st.
func (e *Engine) Apply(st State, cmd Command) (State, error) {
	next := st
	if next.Selected == nil {
		next.Selected = set.NewSet[string]()
	}

	switch cmd.Op {
	case OpMoveCursor:
		next.Cursor = clamp(st.Cursor+cmd.Delta, len(e.Visible(st)))

	case OpToggleExpand:
		n, ok := e.tree.Node(cmd.Node)
		if !ok {
			return st, fmt.Errorf("toggle expand: %w", tree.ErrUnknownNode)
		}
		if n.Kind != tree.Directory {
			return next, nil
		}
		focused, hasFocus := e.Focused(st)
		var err error
		if n.Expanded {
			err = e.tree.Collapse(cmd.Node)
		} else {
			err = e.tree.Expand(cmd.Node)
		}
		if err != nil {
			return st, err
		}
		next.Cursor = e.refocus(next, focused, hasFocus)

	case OpToggleSelect:
		n, ok := e.tree.Node(cmd.Node)
		if !ok {
			return st, fmt.Errorf("toggle select: %w", tree.ErrUnknownNode)
		}
		switch n.Kind {
		case tree.File:
			next.Selected = st.Selected.Clone()
			if next.Selected.Contains(n.Key) {
				next.Selected.Remove(n.Key)
			} else {
				next.Selected.Add(n.Key)
			}
		case tree.Directory:
			files := e.tree.DescendantFiles(cmd.Node, st.HiddenVisible)
			if len(files) == 0 {
				return next, nil
			}
			next.Selected = st.Selected.Clone()
			if triState(st.Selected, files) == Selected {
				next.Selected.RemoveValues(files)
			} else {
				next.Selected.AddValues(files)
			}
		}

	case OpSelectAllVisible:
		next.Selected = st.Selected.Clone()
		for _, id := range e.Visible(st) {
			if n, _ := e.tree.Node(id); n.Kind == tree.File {
				next.Selected.Add(n.Key)
			}
		}

	case OpDeselectAll:
		next.Selected = set.NewSet[string]()

	case OpToggleHidden:
		focused, hasFocus := e.Focused(st)
		next.HiddenVisible = !st.HiddenVisible
		next.Cursor = e.refocus(next, focused, hasFocus)

	case OpConfirm, OpQuit:
		// handled by the controller

	default:
		return st, fmt.Errorf("unknown command %v", cmd.Op)
	}
	return next, nil
}

// refocus keeps the cursor on the previously focused node, or on its nearest
// visible ancestor, falling back to clamping the old index.
func (e *Engine) refocus(next State, focused tree.NodeID, hasFocus bool) int {
	visible := e.Visible(next)
	if hasFocus {
		index := make(map[tree.NodeID]int, len(visible))
		for i, id := range visible {
			index[id] = i
		}
		for id := focused; id != tree.RootID && id != tree.NoParent; {
			if i, ok := index[id]; ok {
				return i
			}
			n, _ := e.tree.Node(id)
			id = n.Parent
		}
	}
	return clamp(next.Cursor, len(visible))
}

// TriState derives the status of id from st.Selected. Directories are
// Selected when every descendant file (under the current visibility) is
// selected, Partial when only some are, and Unselected otherwise, including
// when they have no files at all.
func (e *Engine) TriState(st State, id tree.NodeID) TriState {
	n, ok := e.tree.Node(id)
	if !ok {
		return Unselected
	}
	switch n.Kind {
	case tree.File:
		if st.Selected.Contains(n.Key) {
			return Selected
		}
		return Unselected
	case tree.Directory:
		if !hasSelectionUnder(st.Selected, n) {
			return Unselected
		}
		return triState(st.Selected, e.tree.DescendantFiles(id, st.HiddenVisible))
	default:
		return Unselected
	}
}

// Rows projects the visible list for drawing.
func (e *Engine) Rows(st State) []Row {
	visible := e.Visible(st)
	cursor := clamp(st.Cursor, len(visible))
	rows := make([]Row, 0, len(visible))
	for i, id := range visible {
		n, _ := e.tree.Node(id)
		rows = append(rows, Row{
			ID:       id,
			Name:     n.Name,
			Path:     n.RelPath,
			Depth:    e.tree.Depth(id),
			Kind:     n.Kind,
			Expanded: n.Expanded,
			Hidden:   n.Hidden,
			Focused:  i == cursor,
			Mark:     e.TriState(st, id),
		})
	}
	return rows
}

// hasSelectionUnder is a cheap pre-check that avoids loading subtrees which
// cannot contain a selected path.
func hasSelectionUnder(selected set.Set[string], dir tree.Node) bool {
	if dir.ID == tree.RootID {
		return selected.Len() > 0
	}
	prefix := dir.Key + "/"
	for p := range selected {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func triState(selected set.Set[string], files []string) TriState {
	count := 0
	for _, f := range files {
		if selected.Contains(f) {
			count++
		}
	}
	switch {
	case count == 0:
		return Unselected
	case count == len(files):
		return Selected
	default:
		return Partial
	}
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
