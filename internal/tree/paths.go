package tree

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// Canonicalize turns p (relative to root, or absolute) into the canonical
// slash-separated relative form used as a selection key: symlinks are
// resolved, so every alias of a file yields the same key. root must be an
// absolute, symlink-free path. Paths that lexically climb out of root, or
// whose symlink-resolved target lands outside root, yield a PathSecurityError.
func Canonicalize(root, p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", &PathSecurityError{Path: p, Root: root}
		}
		p = rel
	}
	rel := path.Clean(filepath.ToSlash(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", &PathSecurityError{Path: p, Root: root}
	}

	resolved, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(rel)))
	switch {
	case err == nil:
		if resolved == root || !within(root, resolved) {
			return "", &PathSecurityError{Path: p, Root: root}
		}
		r, err := filepath.Rel(root, resolved)
		if err != nil {
			return "", &PathSecurityError{Path: p, Root: root}
		}
		return filepath.ToSlash(r), nil
	case errors.Is(err, fs.ErrNotExist):
		// nothing on disk to escape through; ResolvePath rechecks on read
		return rel, nil
	default:
		return "", &NodeIoError{Path: p, Err: err}
	}
}

// ResolvePath returns the on-disk path of a canonical relative path with
// every symlink followed. It is the path readers should open; a target
// outside root yields a PathSecurityError.
func ResolvePath(root, rel string) (string, error) {
	resolved, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	if !within(root, resolved) {
		return "", &PathSecurityError{Path: rel, Root: root}
	}
	return resolved, nil
}

// within reports whether p is root or lies below it.
func within(root, p string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
