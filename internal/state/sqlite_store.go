package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3" // Import SQLite driver
)

const createProjectStateTable = `
	CREATE TABLE IF NOT EXISTS project_state (
		root_key TEXT PRIMARY KEY,
		selected_files TEXT NOT NULL DEFAULT '[]',
		expanded_dirs TEXT NOT NULL DEFAULT '[]',
		hidden_visible BOOLEAN NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	)
`

// SQLiteStore keeps project states in a SQLite database, one row per root.
type SQLiteStore struct {
	DB     *sqlx.DB
	Path   string
	Logger *slog.Logger
}

type projectRow struct {
	RootKey       string    `db:"root_key"`
	SelectedFiles string    `db:"selected_files"`
	ExpandedDirs  string    `db:"expanded_dirs"`
	HiddenVisible bool      `db:"hidden_visible"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// OpenSQLite opens (creating if needed) the database at path and its schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createProjectStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create project_state table: %w", err)
	}
	return &SQLiteStore{DB: db, Path: path, Logger: logger}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

// Load returns the saved state for rootKey or Empty(rootKey).
func (s *SQLiteStore) Load(rootKey string) ProjectState {
	var row projectRow
	err := s.DB.Get(&row, "SELECT * FROM project_state WHERE root_key = ?", rootKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.Logger.Debug("ignoring saved state", "path", s.Path, "err", err)
		}
		return Empty(rootKey)
	}

	ps := ProjectState{RootKey: row.RootKey, HiddenVisible: row.HiddenVisible, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal([]byte(row.SelectedFiles), &ps.SelectedFiles); err != nil {
		s.Logger.Debug("ignoring saved state", "err", &CorruptionError{Path: s.Path, Err: err})
		return Empty(rootKey)
	}
	if err := json.Unmarshal([]byte(row.ExpandedDirs), &ps.ExpandedDirs); err != nil {
		s.Logger.Debug("ignoring saved state", "err", &CorruptionError{Path: s.Path, Err: err})
		return Empty(rootKey)
	}
	return Normalize(ps)
}

// Save upserts the row for ps.RootKey.
func (s *SQLiteStore) Save(ps ProjectState) error {
	if ps.RootKey == "" {
		return errors.New("save state: empty root key")
	}
	ps = Normalize(ps)
	if ps.UpdatedAt.IsZero() {
		ps.UpdatedAt = time.Now().UTC()
	}
	selected, err := json.Marshal(ps.SelectedFiles)
	if err != nil {
		return fmt.Errorf("failed to encode selected files: %w", err)
	}
	expanded, err := json.Marshal(ps.ExpandedDirs)
	if err != nil {
		return fmt.Errorf("failed to encode expanded dirs: %w", err)
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`
		INSERT INTO project_state (root_key, selected_files, expanded_dirs, hidden_visible, updated_at)
		VALUES (:root_key, :selected_files, :expanded_dirs, :hidden_visible, :updated_at)
		ON CONFLICT(root_key) DO UPDATE SET
			selected_files = excluded.selected_files,
			expanded_dirs = excluded.expanded_dirs,
			hidden_visible = excluded.hidden_visible,
			updated_at = excluded.updated_at`,
		projectRow{
			RootKey:       ps.RootKey,
			SelectedFiles: string(selected),
			ExpandedDirs:  string(expanded),
			HiddenVisible: ps.HiddenVisible,
			UpdatedAt:     ps.UpdatedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}
