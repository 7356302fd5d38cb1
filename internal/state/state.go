// Package state persists the per-project selection snapshot between runs.
package state

import (
	"fmt"
	"slices"
	"time"
)

// ProjectState is what is remembered about one project root.
type ProjectState struct {
	RootKey       string    `toml:"root_key"`
	SelectedFiles []string  `toml:"selected_files"`
	ExpandedDirs  []string  `toml:"expanded_dirs"`
	HiddenVisible bool      `toml:"hidden_visible"`
	UpdatedAt     time.Time `toml:"updated_at,omitempty"`
}

// Empty is the state of a project that was never saved.
func Empty(rootKey string) ProjectState {
	return ProjectState{RootKey: rootKey, SelectedFiles: []string{}, ExpandedDirs: []string{}}
}

// Normalize sorts and de-duplicates the path lists. Nil lists become empty.
func Normalize(ps ProjectState) ProjectState {
	ps.SelectedFiles = sortedUnique(ps.SelectedFiles)
	ps.ExpandedDirs = sortedUnique(ps.ExpandedDirs)
	return ps
}

// Equal compares the persisted fields, ignoring UpdatedAt.
func (ps ProjectState) Equal(other ProjectState) bool {
	a, b := Normalize(ps), Normalize(other)
	return a.RootKey == b.RootKey &&
		a.HiddenVisible == b.HiddenVisible &&
		slices.Equal(a.SelectedFiles, b.SelectedFiles) &&
		slices.Equal(a.ExpandedDirs, b.ExpandedDirs)
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	out = append(out, in...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Store loads and saves project states. Load never fails: anything that
// cannot be read comes back as Empty(rootKey).
type Store interface {
	Load(rootKey string) ProjectState
	Save(ps ProjectState) error
}

// CorruptionError describes persisted data that could not be decoded. Stores
// absorb it and only log it.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt state in %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }
