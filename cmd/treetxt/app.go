package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/controller"
	"github.com/hayeah/treetxt/internal/filter"
	"github.com/hayeah/treetxt/internal/metrics"
	"github.com/hayeah/treetxt/internal/metrics/chart"
	"github.com/hayeah/treetxt/internal/selection"
	"github.com/hayeah/treetxt/internal/tree"
	"github.com/hayeah/treetxt/internal/tui"
	"golang.org/x/term"
)

// App is the assembled command. Exactly one of the run modes is chosen from
// the arguments.
type App struct {
	Args       Args
	Logger     *slog.Logger
	Session    *controller.Session
	Metrics    *metrics.OutputMetrics
	ConfigFile *config.File // nil unless --config is given

	// RunUI drives the interactive picker; tests replace it.
	RunUI func(*controller.Session) (tui.ExitState, error)
	// Stdout receives --list output, Stderr the token summary.
	Stdout io.Writer
	Stderr io.Writer
}

// Run dispatches to the list, explicit or interactive mode.
func (a *App) Run() error {
	switch {
	case a.Args.List:
		return a.runList()
	case a.ConfigFile != nil || len(a.Args.Files) > 0:
		return a.runExplicit()
	default:
		return a.runInteractive()
	}
}

func (a *App) stdout() io.Writer {
	if a.Stdout != nil {
		return a.Stdout
	}
	return os.Stdout
}

func (a *App) stderr() io.Writer {
	if a.Stderr != nil {
		return a.Stderr
	}
	return os.Stderr
}

// runList prints every file of the tree, optionally filtered by the
// positional args, and marks the files remembered for this root.
func (a *App) runList() error {
	a.Session.Start()
	selected := a.Session.State().Selected

	files, err := filter.Paths(strings.Join(a.Args.Files, " "),
		a.Session.Tree.DescendantFiles(tree.RootID, a.Args.Hidden))
	if err != nil {
		return err
	}

	w := a.stdout()
	for _, p := range files {
		mark := " "
		if selected.Contains(p) {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", mark, p); err != nil {
			return err
		}
	}
	return nil
}

// runExplicit exports the files named by --config and the positional args.
func (a *App) runExplicit() error {
	var paths []string
	if a.ConfigFile != nil {
		paths = append(paths, a.ConfigFile.Files...)
	}
	paths = append(paths, a.Args.Files...)

	if _, err := a.Session.RunExplicit(paths); err != nil {
		return err
	}
	return a.printSummary()
}

func (a *App) runInteractive() error {
	a.Session.Start()
	if a.Args.Hidden && !a.Session.State().HiddenVisible {
		if _, err := a.Session.Dispatch(selection.ToggleHidden()); err != nil {
			return err
		}
	}

	runUI := a.RunUI
	if runUI == nil {
		runUI = tui.Run
	}
	exit, err := runUI(a.Session)
	if err != nil {
		// still remember what was picked before the UI failed
		if perr := a.Session.Persist(); perr != nil {
			a.Logger.Warn("failed to save selection state", "err", perr)
		}
		return fmt.Errorf("interactive session: %w", err)
	}

	if exit != tui.ExitStateConfirm {
		_, err := a.Session.Dispatch(selection.Quit())
		return err
	}
	if _, err := a.Session.Dispatch(selection.Confirm()); err != nil {
		return err
	}
	return a.printSummary()
}

// printSummary draws the token breakdown of the last export to stderr.
func (a *App) printSummary() error {
	if a.Metrics == nil {
		return nil
	}
	return chart.Print(a.Metrics, chart.DefaultOptions(termWidth, a.stderr()))
}

func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
