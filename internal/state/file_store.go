package state

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hayeah/treetxt/internal/atomicfile"
)

const fileVersion = 1

// document is the on-disk layout of a FileStore.
type document struct {
	Version  int            `toml:"version"`
	Projects []ProjectState `toml:"project"`
}

// FileStore keeps every project in one TOML file, rewritten atomically.
type FileStore struct {
	Path   string
	Logger *slog.Logger
}

// NewFileStore creates a store backed by the file at path. The file is not
// touched until the first Load or Save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{Path: path, Logger: logger}
}

// Load returns the saved state for rootKey or Empty(rootKey).
func (s *FileStore) Load(rootKey string) ProjectState {
	doc, err := s.read()
	if err != nil {
		s.Logger.Debug("ignoring saved state", "path", s.Path, "err", err)
		return Empty(rootKey)
	}
	for _, ps := range doc.Projects {
		if ps.RootKey == rootKey {
			return Normalize(ps)
		}
	}
	return Empty(rootKey)
}

// Save replaces the record for ps.RootKey, keeping every other project.
func (s *FileStore) Save(ps ProjectState) error {
	if ps.RootKey == "" {
		return errors.New("save state: empty root key")
	}
	doc, err := s.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger.Debug("replacing unreadable state file", "path", s.Path, "err", err)
		}
		doc = document{}
	}

	ps = Normalize(ps)
	if ps.UpdatedAt.IsZero() {
		ps.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	}
	projects := make([]ProjectState, 0, len(doc.Projects)+1)
	for _, existing := range doc.Projects {
		if existing.RootKey != ps.RootKey && existing.RootKey != "" {
			projects = append(projects, Normalize(existing))
		}
	}
	projects = append(projects, ps)
	sort.Slice(projects, func(i, j int) bool { return projects[i].RootKey < projects[j].RootKey })

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(document{Version: fileVersion, Projects: projects}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := atomicfile.Save(s.Path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *FileStore) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return doc, err
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return document{}, &CorruptionError{Path: s.Path, Err: err}
	}
	if doc.Version > fileVersion {
		return document{}, &CorruptionError{Path: s.Path, Err: fmt.Errorf("unsupported version %d", doc.Version)}
	}
	return doc, nil
}
