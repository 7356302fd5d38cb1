// Package export renders the selected files of a project into one text
// document: a header, an optional directory diagram and the file contents.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hayeah/treetxt/internal/atomicfile"
	"github.com/hayeah/treetxt/internal/config"
	"github.com/hayeah/treetxt/internal/metrics"
	"github.com/hayeah/treetxt/internal/set"
	"github.com/hayeah/treetxt/internal/tree"
)

const (
	fileRule        = "─"
	fileRuleWidth   = 60
	minNumberWidth  = 4
	selectedMarker  = " ✓"
	inaccessibleTag = " [inaccessible]"
	timestampLayout = "2006-01-02 15:04:05 UTC"
)

// Input is what gets exported.
type Input struct {
	Tree          *tree.Model
	Selected      []string // relative to the tree root, or absolute
	HiddenVisible bool
}

// Exporter renders documents. The zero value is usable.
type Exporter struct {
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.OutputMetrics // optional; reset and filled by each Generate
}

// New creates an exporter using the wall clock.
func New(logger *slog.Logger, m *metrics.OutputMetrics) *Exporter {
	return &Exporter{Now: time.Now, Logger: logger, Metrics: m}
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Admit canonicalizes the selection against the tree root, dropping paths
// that escape it, and returns the survivors sorted and de-duplicated.
func (e *Exporter) Admit(t *tree.Model, selected []string) []string {
	admitted := set.NewSet[string]()
	for _, p := range selected {
		rel, err := tree.Canonicalize(t.Root(), p)
		if err != nil {
			e.logger().Warn("skipping selected path", "path", p, "err", err)
			continue
		}
		admitted.Add(rel)
	}
	return set.Sorted(admitted)
}

// Generate builds the document as a list of lines. Apart from the timestamp
// the output depends only on the selection, the files and format.
func (e *Exporter) Generate(in Input, format config.OutputFormat) ([]string, error) {
	files := e.Admit(in.Tree, in.Selected)
	if len(files) == 0 {
		return nil, ErrNoSelection
	}
	if e.Metrics != nil {
		e.Metrics.Reset()
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	sep := format.Separator()

	lines := []string{
		"# Codebase Export",
		"Generated on: " + now().UTC().Format(timestampLayout),
		"Base directory: " + in.Tree.Root(),
		"Total files: " + strconv.Itoa(len(files)),
		"",
	}

	if format.IncludeTree {
		lines = append(lines, sep, "## DIRECTORY STRUCTURE", sep, "")
		lines = append(lines, e.renderTree(in.Tree, set.NewSet(files...), in.HiddenVisible)...)
		lines = append(lines, "")
	}

	if format.IncludeFileContents {
		lines = append(lines, sep, "## FILE CONTENTS", sep, "")
		for i, rel := range files {
			if i > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, sep, "File: "+rel, strings.Repeat(fileRule, fileRuleWidth), "")
			lines = append(lines, e.renderFile(in.Tree.Root(), rel, format.IncludeLineNumbers)...)
		}
	} else if e.Metrics != nil {
		// the breakdown still reflects what was selected
		for _, rel := range files {
			if text, err := readText(in.Tree.Root(), rel); err == nil {
				e.Metrics.Add(metrics.KindFile, rel, text)
			}
		}
	}

	if e.Metrics != nil {
		e.Metrics.Add(metrics.KindDocument, "", Join(lines))
	}
	return lines, nil
}

// Render is Generate joined into the final text.
func (e *Exporter) Render(in Input, format config.OutputFormat) (string, error) {
	lines, err := e.Generate(in, format)
	if err != nil {
		return "", err
	}
	return Join(lines), nil
}

// Join turns document lines into text ending with a newline.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteFile replaces path with doc atomically.
func (e *Exporter) WriteFile(path, doc string) error {
	if err := atomicfile.Save(path, []byte(doc), 0o644); err != nil {
		return &OutputWriteError{Path: path, Err: err}
	}
	return nil
}

// WriteTo writes doc to w, naming the destination in errors.
func (e *Exporter) WriteTo(w io.Writer, name, doc string) error {
	if _, err := io.WriteString(w, doc); err != nil {
		return &OutputWriteError{Path: name, Err: err}
	}
	return nil
}

// renderTree draws the whole hierarchy below the root. Dotfiles are drawn
// when hidden files are visible, or when they are or contain a selection.
func (e *Exporter) renderTree(t *tree.Model, selected set.Set[string], hiddenVisible bool) []string {
	rootNode, _ := t.Node(tree.RootID)
	lines := []string{rootNode.Name + "/"}

	shown := func(n tree.Node) bool {
		if !n.Hidden || hiddenVisible || selected.Contains(n.Key) {
			return true
		}
		prefix := n.Key + "/"
		for p := range selected {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		return false
	}

	var walk func(id tree.NodeID, indent string)
	walk = func(id tree.NodeID, indent string) {
		if err := t.Load(id); err != nil {
			e.logger().Warn("cannot list directory for export", "id", id, "err", err)
			return
		}
		var kids []tree.Node
		for _, c := range t.Children(id, true) {
			if n, _ := t.Node(c); shown(n) {
				kids = append(kids, n)
			}
		}
		for i, n := range kids {
			branch, next := "├── ", "│   "
			if i == len(kids)-1 {
				branch, next = "└── ", "    "
			}
			switch n.Kind {
			case tree.Directory:
				lines = append(lines, indent+branch+n.Name+"/")
				walk(n.ID, indent+next)
			case tree.File:
				name := n.Name
				if selected.Contains(n.Key) {
					name += selectedMarker
				}
				lines = append(lines, indent+branch+name)
			default:
				lines = append(lines, indent+branch+n.Name+inaccessibleTag)
			}
		}
	}
	walk(tree.RootID, "")
	return lines
}

// renderFile returns the body lines for one file, or an inline notice when it
// cannot be read.
func (e *Exporter) renderFile(root, rel string, lineNumbers bool) []string {
	text, err := readText(root, rel)
	if err != nil {
		e.logger().Warn("cannot read selected file", "path", rel, "err", err)
		reason := err
		var readErr *FileReadError
		if errors.As(err, &readErr) {
			reason = readErr.Err
		}
		return []string{fmt.Sprintf("[unable to read file: %v]", reason)}
	}
	if e.Metrics != nil {
		e.Metrics.Add(metrics.KindFile, rel, text)
	}
	if strings.TrimSpace(text) == "" {
		return []string{"(empty file)"}
	}

	body := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range body {
		body[i] = strings.TrimSuffix(line, "\r")
	}
	if !lineNumbers {
		return body
	}
	width := max(minNumberWidth, len(strconv.Itoa(len(body))))
	for i, line := range body {
		body[i] = fmt.Sprintf("%*d | %s", width, i+1, line)
	}
	return body
}

