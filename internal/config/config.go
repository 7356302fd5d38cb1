// Package config holds the output format and the on-disk configuration
// consumed by the exporter and the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AppName names the per-user state directory.
const AppName = "treetxt"

// DefaultSeparator is the banner line used between output sections.
var DefaultSeparator = strings.Repeat("═", 80)

// OutputFormat controls what the exported document contains.
type OutputFormat struct {
	IncludeLineNumbers  bool   `toml:"include_line_numbers"`
	IncludeTree         bool   `toml:"include_tree"`
	IncludeFileContents bool   `toml:"include_file_contents"`
	FileSeparator       string `toml:"file_separator"`
}

// DefaultOutputFormat returns the format used when nothing is configured.
func DefaultOutputFormat() OutputFormat {
	return OutputFormat{
		IncludeLineNumbers:  false,
		IncludeTree:         true,
		IncludeFileContents: true,
		FileSeparator:       DefaultSeparator,
	}
}

// Separator returns the configured separator, or the default when empty.
func (f OutputFormat) Separator() string {
	if f.FileSeparator == "" {
		return DefaultSeparator
	}
	return f.FileSeparator
}

// File is the TOML configuration file: an explicit file list plus formatting.
//
//	files = ["src/main.go", "README.md"]
//
//	[output_format]
//	include_line_numbers = true
type File struct {
	Files        []string     `toml:"files"`
	OutputFormat OutputFormat `toml:"output_format"`
}

// LoadFile reads a configuration file. Keys missing from [output_format]
// keep their defaults; unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	cfg := &File{OutputFormat: DefaultOutputFormat()}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// StateDir returns the directory holding persisted project state. A non-empty
// override wins; otherwise the OS user config directory is used. The
// directory is created with 0700 permissions.
func StateDir(override string) (string, error) {
	dir := strings.TrimSpace(override)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, AppName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}
