package tree

import (
	"errors"
	"fmt"
)

// ErrUnknownNode is returned for ids that are not in the arena.
var ErrUnknownNode = errors.New("unknown node")

// RootAccessError reports a root directory that is missing or unreadable.
type RootAccessError struct {
	Path string
	Err  error
}

func (e *RootAccessError) Error() string {
	return fmt.Sprintf("cannot access root directory %s: %v", e.Path, e.Err)
}

func (e *RootAccessError) Unwrap() error { return e.Err }

// PathSecurityError reports a path that resolves outside the root.
type PathSecurityError struct {
	Path string
	Root string
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("path %s resolves outside of %s", e.Path, e.Root)
}

// NodeIoError reports a listing or stat failure local to one node.
type NodeIoError struct {
	Path string
	Err  error
}

func (e *NodeIoError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *NodeIoError) Unwrap() error { return e.Err }
