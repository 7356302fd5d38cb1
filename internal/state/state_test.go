package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	ps := Normalize(ProjectState{
		RootKey:       "/p",
		SelectedFiles: []string{"b.txt", "a.txt", "b.txt"},
	})
	assert.Equal(t, []string{"a.txt", "b.txt"}, ps.SelectedFiles)
	assert.NotNil(t, ps.ExpandedDirs)
	assert.Empty(t, ps.ExpandedDirs)
}

func sample(rootKey string) ProjectState {
	return ProjectState{
		RootKey:       rootKey,
		SelectedFiles: []string{"src/main.txt", "README.txt"},
		ExpandedDirs:  []string{"src"},
		HiddenVisible: true,
	}
}

// storeContract runs the behavior every Store must have.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("missing key is empty", func(t *testing.T) {
		s := open(t)
		assert.True(t, Empty("/nowhere").Equal(s.Load("/nowhere")))
	})

	t.Run("round trip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(sample("/proj")))
		got := s.Load("/proj")
		assert.True(t, sample("/proj").Equal(got), "%+v", got)
		assert.Equal(t, []string{"README.txt", "src/main.txt"}, got.SelectedFiles)

		// Load(k) after Save(Load(k)) equals Load(k)
		require.NoError(t, s.Save(got))
		again := s.Load("/proj")
		assert.True(t, got.Equal(again))
		assert.True(t, got.UpdatedAt.Equal(again.UpdatedAt))
	})

	t.Run("save replaces only its key", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(sample("/a")))
		require.NoError(t, s.Save(sample("/b")))
		require.NoError(t, s.Save(Empty("/a")))

		assert.True(t, Empty("/a").Equal(s.Load("/a")))
		assert.True(t, sample("/b").Equal(s.Load("/b")))
	})

	t.Run("empty root key", func(t *testing.T) {
		s := open(t)
		assert.Error(t, s.Save(ProjectState{}))
	})
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewFileStore(filepath.Join(t.TempDir(), "nested", "state.toml"), nil)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore_CorruptFileLoadsEmptyAndIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is [not toml"), 0o600))
	s := NewFileStore(path, nil)

	assert.True(t, Empty("/p").Equal(s.Load("/p")))

	require.NoError(t, s.Save(sample("/p")))
	assert.True(t, sample("/p").Equal(s.Load("/p")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = 1

[[project]]
root_key = "/p"
selected_files = ["b.txt", "a.txt"]
expanded_dirs = []
hidden_visible = false
`), 0o600))

	got := NewFileStore(path, nil).Load("/p")
	assert.Equal(t, []string{"a.txt", "b.txt"}, got.SelectedFiles)

	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))
	assert.True(t, Empty("/p").Equal(NewFileStore(path, nil).Load("/p")))
}

func TestSQLiteStore_MalformedRowLoadsEmpty(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.DB.Exec(
		"INSERT INTO project_state (root_key, selected_files, expanded_dirs, hidden_visible, updated_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
		"/p", "{broken", "[]", false,
	)
	require.NoError(t, err)
	assert.True(t, Empty("/p").Equal(s.Load("/p")))
}
