// Package tree materializes a directory hierarchy lazily into an arena of
// nodes addressed by integer ids. Directories are listed the first time they
// are loaded and the listing is cached for the lifetime of the Model.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a node.
type Kind int

const (
	File Kind = iota
	Directory
	Inaccessible
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "inaccessible"
	}
}

// NodeID addresses a node in the arena.
type NodeID int

const (
	// RootID is the id of the root directory.
	RootID NodeID = 0
	// NoParent is the parent of the root.
	NoParent NodeID = -1
)

// Node is one entry of the tree.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Name     string
	AbsPath  string // lexical absolute path
	RelPath  string // lexical slash-separated path relative to the root
	Target   string // symlink-resolved absolute path
	Key      string // Target relative to the root; the selection key
	Kind     Kind
	Hidden   bool
	Children []NodeID // nil until Loaded
	Loaded   bool
	Expanded bool
	Err      error // why the node is Inaccessible
}

// Matcher decides whether a relative path is excluded from the tree.
type Matcher interface {
	Match(relPath string, isDir bool) bool
}

// Options configures a Model.
type Options struct {
	Ignore Matcher
	Logger *slog.Logger
}

// Model owns every node of one tree.
type Model struct {
	root   string
	nodes  []Node
	ignore Matcher
	logger *slog.Logger
}

// LoadRoot opens the directory at p and lists its immediate entries.
func LoadRoot(p string, opts Options) (*Model, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, &RootAccessError{Path: p, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &RootAccessError{Path: abs, Err: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, &RootAccessError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &RootAccessError{Path: abs, Err: errors.New("not a directory")}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Model{
		root:   resolved,
		ignore: opts.Ignore,
		logger: logger,
	}
	m.nodes = append(m.nodes, Node{
		ID:       RootID,
		Parent:   NoParent,
		Name:     filepath.Base(resolved),
		AbsPath:  resolved,
		Target:   resolved,
		Kind:     Directory,
		Expanded: true,
	})
	if err := m.Load(RootID); err != nil {
		return nil, err
	}
	if root := m.nodes[RootID]; root.Kind == Inaccessible {
		return nil, &RootAccessError{Path: resolved, Err: errors.Unwrap(root.Err)}
	}
	return m, nil
}

// Root returns the absolute, symlink-resolved root path.
func (m *Model) Root() string { return m.root }

// Len returns the number of materialized nodes.
func (m *Model) Len() int { return len(m.nodes) }

// Node returns a copy of the node with the given id.
func (m *Model) Node(id NodeID) (Node, bool) {
	if !m.valid(id) {
		return Node{}, false
	}
	return m.nodes[id], true
}

func (m *Model) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(m.nodes)
}

// Depth is 0 for the entries directly below the root.
func (m *Model) Depth(id NodeID) int {
	depth := -1
	for m.valid(id) && id != RootID {
		depth++
		id = m.nodes[id].Parent
	}
	return depth
}

// Load lists a directory's entries once. Listing failures are recorded on
// the node instead of being returned; the only error is an unknown id.
func (m *Model) Load(id NodeID) error {
	if !m.valid(id) {
		return fmt.Errorf("load %d: %w", id, ErrUnknownNode)
	}
	parent := m.nodes[id]
	if parent.Kind != Directory || parent.Loaded {
		return nil
	}

	entries, err := os.ReadDir(parent.AbsPath)
	if err != nil {
		m.logger.Warn("cannot list directory", "path", parent.AbsPath, "err", err)
		n := &m.nodes[id]
		n.Kind = Inaccessible
		n.Err = &NodeIoError{Path: parent.AbsPath, Err: err}
		n.Loaded = true
		n.Expanded = false
		return nil
	}

	type pending struct {
		node   Node
		dirish bool
	}
	batch := make([]pending, 0, len(entries))
	for _, entry := range entries {
		child, dirish := m.classify(parent, entry)
		child.Key = m.keyFor(child)
		if m.ignore != nil && m.ignore.Match(child.RelPath, dirish) {
			continue
		}
		batch = append(batch, pending{node: child, dirish: dirish})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].dirish != batch[j].dirish {
			return batch[i].dirish
		}
		a, b := strings.ToLower(batch[i].node.Name), strings.ToLower(batch[j].node.Name)
		if a != b {
			return a < b
		}
		return batch[i].node.Name < batch[j].node.Name
	})

	children := make([]NodeID, 0, len(batch))
	for _, p := range batch {
		p.node.ID = NodeID(len(m.nodes))
		m.nodes = append(m.nodes, p.node)
		children = append(children, p.node.ID)
	}
	n := &m.nodes[id]
	n.Children = children
	n.Loaded = true
	return nil
}

// classify builds the node for one directory entry. dirish reports whether
// the entry sorts with directories.
func (m *Model) classify(parent Node, entry fs.DirEntry) (Node, bool) {
	name := entry.Name()
	rel := name
	if parent.ID != RootID {
		rel = parent.RelPath + "/" + name
	}
	n := Node{
		Parent:  parent.ID,
		Name:    name,
		AbsPath: filepath.Join(parent.AbsPath, name),
		RelPath: rel,
		Target:  filepath.Join(parent.Target, name),
		Hidden:  isHiddenName(name),
	}

	mode := entry.Type()
	if mode&fs.ModeSymlink != 0 {
		return m.classifySymlink(parent, n)
	}
	switch {
	case mode.IsDir():
		n.Kind = Directory
		return n, true
	case mode.IsRegular():
		n.Kind = File
	default:
		n.Kind = Inaccessible
		n.Err = &NodeIoError{Path: n.AbsPath, Err: fmt.Errorf("unsupported file type %s", mode.Type())}
	}
	return n, false
}

// keyFor names a node by where it lives on disk, so a file reached through
// an in-root symlink shares the key of its target.
func (m *Model) keyFor(n Node) string {
	if n.Kind == Inaccessible || !within(m.root, n.Target) || n.Target == m.root {
		return n.RelPath
	}
	rel, err := filepath.Rel(m.root, n.Target)
	if err != nil {
		return n.RelPath
	}
	return filepath.ToSlash(rel)
}

func (m *Model) classifySymlink(parent Node, n Node) (Node, bool) {
	target, err := filepath.EvalSymlinks(n.AbsPath)
	if err != nil {
		n.Kind = Inaccessible
		n.Err = &NodeIoError{Path: n.AbsPath, Err: err}
		return n, false
	}
	n.Target = target
	if !within(m.root, target) {
		m.logger.Debug("symlink escapes root", "path", n.AbsPath, "target", target)
		n.Kind = Inaccessible
		n.Err = &PathSecurityError{Path: n.RelPath, Root: m.root}
		return n, false
	}
	info, err := os.Stat(target)
	if err != nil {
		n.Kind = Inaccessible
		n.Err = &NodeIoError{Path: n.AbsPath, Err: err}
		return n, false
	}
	switch {
	case info.IsDir():
		for anc := parent.ID; anc != NoParent; anc = m.nodes[anc].Parent {
			if m.nodes[anc].Target == target {
				n.Kind = Inaccessible
				n.Err = &NodeIoError{Path: n.AbsPath, Err: errors.New("symlink cycle")}
				return n, true
			}
		}
		n.Kind = Directory
		return n, true
	case info.Mode().IsRegular():
		n.Kind = File
	default:
		n.Kind = Inaccessible
		n.Err = &NodeIoError{Path: n.AbsPath, Err: fmt.Errorf("unsupported file type %s", info.Mode().Type())}
	}
	return n, false
}

// Expand loads a directory and marks it expanded. Files and inaccessible
// nodes are left alone.
func (m *Model) Expand(id NodeID) error {
	if err := m.Load(id); err != nil {
		return err
	}
	if n := &m.nodes[id]; n.Kind == Directory {
		n.Expanded = true
	}
	return nil
}

// Collapse hides a directory's descendants but keeps its cached children.
// The root cannot be collapsed.
func (m *Model) Collapse(id NodeID) error {
	if !m.valid(id) {
		return fmt.Errorf("collapse %d: %w", id, ErrUnknownNode)
	}
	if id != RootID {
		m.nodes[id].Expanded = false
	}
	return nil
}

// Children returns the cached children of id, without dotfiles unless
// hiddenVisible is set. Unloaded directories have no children.
func (m *Model) Children(id NodeID, hiddenVisible bool) []NodeID {
	if !m.valid(id) {
		return nil
	}
	all := m.nodes[id].Children
	if hiddenVisible {
		return all
	}
	out := make([]NodeID, 0, len(all))
	for _, c := range all {
		if !m.nodes[c].Hidden {
			out = append(out, c)
		}
	}
	return out
}

// Flatten lists the visible rows: a depth-first pre-order walk below the
// root that descends only into expanded directories.
func (m *Model) Flatten(hiddenVisible bool) []NodeID {
	var out []NodeID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		for _, c := range m.Children(id, hiddenVisible) {
			out = append(out, c)
			if m.nodes[c].Expanded {
				walk(c)
			}
		}
	}
	walk(RootID)
	return out
}

// DescendantFiles returns the sorted, distinct keys of every file below id
// under the given visibility, loading (not expanding) directories as needed.
// A file id yields its own key.
func (m *Model) DescendantFiles(id NodeID, hiddenVisible bool) []string {
	if !m.valid(id) {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := m.nodes[id]
		switch n.Kind {
		case File:
			if !seen[n.Key] {
				seen[n.Key] = true
				out = append(out, n.Key)
			}
		case Directory:
			_ = m.Load(id)
			for _, c := range m.Children(id, hiddenVisible) {
				walk(c)
			}
		}
	}
	walk(id)
	sort.Strings(out)
	return out
}

// Lookup resolves a canonical relative path to its node, loading the
// directories on the way. Dotfiles are found regardless of visibility.
func (m *Model) Lookup(rel string) (NodeID, error) {
	rel = path.Clean(rel)
	if rel == "." || rel == "" {
		return RootID, nil
	}
	cur := RootID
	for _, part := range strings.Split(rel, "/") {
		if err := m.Load(cur); err != nil {
			return 0, err
		}
		next := NodeID(-1)
		for _, c := range m.nodes[cur].Children {
			if m.nodes[c].Name == part {
				next = c
				break
			}
		}
		if next < 0 {
			return 0, fmt.Errorf("lookup %s: %w", rel, fs.ErrNotExist)
		}
		cur = next
	}
	return cur, nil
}
