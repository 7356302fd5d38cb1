package ignore

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Ignore matches root-relative paths against the .gitignore files of a tree
type Ignore struct {
	matcher gitignore.Matcher
}

// NewIgnore reads every .gitignore below rootPath. The .git directory is
// always ignored.
func NewIgnore(rootPath string) (*Ignore, error) {
	fs := osfs.New(rootPath)
	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read gitignore patterns: %w", err)
	}
	patterns = append(patterns, gitignore.ParsePattern(".git/", nil))

	return &Ignore{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Match reports whether the slash-separated relative path is ignored.
func (ig *Ignore) Match(relPath string, isDir bool) bool {
	relPath = path.Clean(relPath)
	if relPath == "." || relPath == "" {
		return false
	}
	return ig.matcher.Match(strings.Split(relPath, "/"), isDir)
}
