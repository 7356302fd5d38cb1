package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/golang-cz/devslog"
)

// Args defines the command-line arguments
type Args struct {
	Root           string   `arg:"-r,--root" help:"Project root directory" default:"."`
	Config         string   `arg:"-c,--config" help:"TOML file with an explicit file list and [output_format]"`
	Output         string   `arg:"-o,--output" help:"Output file, or - for stdout" default:"codebase.txt"`
	LineNumbers    bool     `arg:"-l,--line-numbers" help:"Prefix every content line with its line number"`
	NoTree         bool     `arg:"--no-tree" help:"Omit the directory structure"`
	NoContent      bool     `arg:"--no-content" help:"Omit file contents"`
	Separator      string   `arg:"--separator" help:"Banner line between sections"`
	Hidden         bool     `arg:"--hidden" help:"Start with hidden files visible"`
	Gitignore      bool     `arg:"--gitignore" help:"Hide paths matched by .gitignore files"`
	Clipboard      bool     `arg:"--clipboard" help:"Also copy the document to the clipboard"`
	TokenEstimator string   `arg:"--token-estimator" help:"Token count estimator to use: 'simple' (size/4) or 'tiktoken'" default:"simple"`
	StateBackend   string   `arg:"--state-backend" help:"Where selections are remembered: 'file' or 'sqlite'" default:"file"`
	StateDir       string   `arg:"--state-dir,env:TREETXT_STATE_DIR" help:"Directory for remembered selections"`
	List           bool     `arg:"-L,--list" help:"List the files of the tree instead of exporting; positional args filter them"`
	Verbose        bool     `arg:"-v,--verbose" help:"Debug logging"`
	Files          []string `arg:"positional" help:"Files to export without the interactive picker"`
}

// Description implements arg.Described.
func (Args) Description() string {
	return "treetxt browses a project tree, remembers which files you pick, and exports them as one text document."
}

// NewLogger builds the console logger. Logs go to stderr so stdout stays
// free for the exported document.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(devslog.NewHandler(w, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{Level: level},
		SortKeys:       true,
	}))
}

// main is our entrypoint: parse args and run the application
func main() {
	var args Args
	arg.MustParse(&args)

	logger := NewLogger(os.Stderr, args.Verbose)
	app, cleanup, err := BuildApp(args, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		logger.Error("treetxt failed", "err", err)
		cleanup()
		os.Exit(1)
	}
}
