package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hayeah/treetxt/ignore"
	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/controller"
	"github.com/hayeah/treetxt/internal/export"
	"github.com/hayeah/treetxt/internal/metrics"
	"github.com/hayeah/treetxt/internal/state"
	"github.com/hayeah/treetxt/internal/tree"
)

// ProvideIgnore returns the .gitignore matcher when --gitignore is set.
func ProvideIgnore(args Args) (tree.Matcher, error) {
	if !args.Gitignore {
		return nil, nil
	}
	root, err := filepath.Abs(args.Root)
	if err != nil {
		return nil, err
	}
	ig, err := ignore.NewIgnore(root)
	if err != nil {
		return nil, err
	}
	return ig, nil
}

// ProvideTree loads the project root.
func ProvideTree(args Args, matcher tree.Matcher, logger *slog.Logger) (*tree.Model, error) {
	return tree.LoadRoot(args.Root, tree.Options{Ignore: matcher, Logger: logger})
}

// ProvideConfigFile loads --config, or returns nil when it is not given.
func ProvideConfigFile(args Args) (*config.File, error) {
	if args.Config == "" {
		return nil, nil
	}
	return config.LoadFile(args.Config)
}

// ProvideOptions merges the config file format with the command-line flags;
// flags only ever switch features off the defaults, or on for line numbers.
func ProvideOptions(args Args, cfg *config.File) controller.Options {
	format := config.DefaultOutputFormat()
	if cfg != nil {
		format = cfg.OutputFormat
	}
	if args.LineNumbers {
		format.IncludeLineNumbers = true
	}
	if args.NoTree {
		format.IncludeTree = false
	}
	if args.NoContent {
		format.IncludeFileContents = false
	}
	if args.Separator != "" {
		format.FileSeparator = args.Separator
	}
	return controller.Options{
		Output:    args.Output,
		Format:    format,
		Clipboard: args.Clipboard,
	}
}

func ProvideCounter(args Args) (metrics.Counter, error) {
	return metrics.NewCounter(args.TokenEstimator)
}

// ProvideMetrics constructs OutputMetrics with the given counter.
func ProvideMetrics(counter metrics.Counter) *metrics.OutputMetrics {
	return metrics.NewOutputMetrics(counter)
}

func ProvideExporter(logger *slog.Logger, m *metrics.OutputMetrics) *export.Exporter {
	return export.New(logger, m)
}

// ProvideStore opens the configured state backend.
func ProvideStore(args Args, logger *slog.Logger) (state.Store, func(), error) {
	dir, err := config.StateDir(args.StateDir)
	if err != nil {
		return nil, nil, err
	}
	switch args.StateBackend {
	case "", "file":
		return state.NewFileStore(filepath.Join(dir, "state.toml"), logger), func() {}, nil
	case "sqlite":
		s, err := state.OpenSQLite(filepath.Join(dir, "state.db"), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("failed to close state database", "err", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend: %s", args.StateBackend)
	}
}
