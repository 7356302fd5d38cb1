// Package chart prints the token breakdown of an export as an ASCII bar
// chart. Terminal width and the writer are injected.
package chart

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/hayeah/treetxt/internal/metrics"
)

// Options controls layout.
type Options struct {
	BarWidth     int        // 0 = 35% of the terminal, at most 30
	FillRune     rune       // default '█'
	ThresholdPct float64    // entries below this share are folded into dir/**
	TermWidth    func() int // returns columns
	Writer       io.Writer
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions(termWidth func() int, w io.Writer) Options {
	return Options{
		FillRune:     '█',
		ThresholdPct: 1,
		TermWidth:    termWidth,
		Writer:       w,
	}
}

// OverheadLabel names the tokens of the document that are not file content:
// the header, the directory diagram and the separators.
const OverheadLabel = "(tree & headers)"

// Print writes one bar per file (or folded directory) followed by a total.
func Print(m *metrics.OutputMetrics, opt Options) error {
	if opt.FillRune == 0 {
		opt.FillRune = '█'
	}
	if opt.TermWidth == nil {
		opt.TermWidth = func() int { return 80 }
	}

	files, fileTotal := collectFileTokens(m)
	total := fileTotal
	buckets := collapseSmallDirs(buildDirTree(files), fileTotal, opt.ThresholdPct)

	if doc := m.SumBy(metrics.KindDocument).Tokens; doc > fileTotal {
		buckets = append(buckets, bucket{Label: OverheadLabel, Tokens: doc - fileTotal})
		total = doc
	}

	for _, ln := range layoutChart(buckets, total, len(files), opt) {
		if _, err := fmt.Fprintln(opt.Writer, ln); err != nil {
			return err
		}
	}
	return nil
}

type fileToken struct {
	Path   string
	Tokens int
}

func collectFileTokens(m *metrics.OutputMetrics) ([]fileToken, int) {
	var out []fileToken
	total := 0
	for _, key := range m.Keys(metrics.KindFile) {
		tokens := m.Items[metrics.NewKey(metrics.KindFile, key)].Tokens
		out = append(out, fileToken{Path: key, Tokens: tokens})
		total += tokens
	}
	return out, total
}

type dirNode struct {
	Name     string
	IsFile   bool
	Tokens   int
	Children map[string]*dirNode
}

// buildDirTree groups slash paths into a tree whose directory nodes carry the
// sum of their files.
func buildDirTree(files []fileToken) *dirNode {
	root := &dirNode{Name: ".", Children: map[string]*dirNode{}}
	for _, f := range files {
		parts := strings.Split(f.Path, "/")
		cur := root
		for i, part := range parts {
			child, ok := cur.Children[part]
			if !ok {
				child = &dirNode{Name: part, IsFile: i == len(parts)-1, Children: map[string]*dirNode{}}
				cur.Children[part] = child
			}
			cur = child
		}
		cur.Tokens = f.Tokens
	}
	rollUp(root)
	return root
}

func rollUp(n *dirNode) int {
	if n.IsFile {
		return n.Tokens
	}
	sum := 0
	for _, c := range n.Children {
		sum += rollUp(c)
	}
	n.Tokens = sum
	return sum
}

type bucket struct {
	Label  string
	Tokens int
}

// collapseSmallDirs walks the tree and folds every child below the threshold
// into a single dir/** bucket per directory.
func collapseSmallDirs(root *dirNode, total int, thresholdPct float64) []bucket {
	var out []bucket
	thresh := float64(total) * thresholdPct / 100

	var walk func(n *dirNode, prefix string)
	walk = func(n *dirNode, prefix string) {
		if n.IsFile {
			out = append(out, bucket{Label: prefix, Tokens: n.Tokens})
			return
		}
		names := make([]string, 0, len(n.Children))
		for name := range n.Children {
			names = append(names, name)
		}
		sort.Strings(names)

		small := 0
		for _, name := range names {
			c := n.Children[name]
			if float64(c.Tokens) < thresh {
				small += c.Tokens
				continue
			}
			walk(c, path.Join(prefix, name))
		}
		if small > 0 {
			out = append(out, bucket{Label: path.Join(prefix, "**"), Tokens: small})
		}
	}
	walk(root, "")
	return out
}

func layoutChart(buckets []bucket, total, fileCount int, opt Options) []string {
	if len(buckets) == 0 || total == 0 {
		return []string{"No tokens recorded"}
	}
	const pctW, tokensW, gapW = 6, 6, 2

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Tokens < buckets[j].Tokens })

	barW := opt.BarWidth
	if barW <= 0 {
		barW = min(int(float64(opt.TermWidth())*0.35), 30)
	}
	keyW := max(opt.TermWidth()-(barW+pctW+tokensW+gapW*3), 8)

	maxTokens := buckets[len(buckets)-1].Tokens
	fill := string(opt.FillRune)
	lines := make([]string, 0, len(buckets)+2)
	for _, b := range buckets {
		barLen := 0
		if maxTokens > 0 {
			barLen = int(float64(b.Tokens)/float64(maxTokens)*float64(barW) + 0.5)
		}
		if barLen == 0 && b.Tokens > 0 {
			barLen = 1
		}
		lines = append(lines, fmt.Sprintf("%-*s  %5.1f%%  %*d  %s",
			barW, strings.Repeat(fill, barLen), pct(b.Tokens, total), tokensW, b.Tokens, trimLeft(b.Label, keyW)))
	}
	lines = append(lines, fmt.Sprintf("%-*s  %5.1f%%  %*d  %s",
		barW, strings.Repeat("─", barW), 100.0, tokensW, total, "TOTAL"))
	lines = append(lines, fmt.Sprintf("\nSummary: %d files, %d tokens", fileCount, total))
	return lines
}

// trimLeft keeps the tail of long labels, where the file name is.
func trimLeft(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return "…" + string(r[len(r)-width+1:])
}

func pct(part, total int) float64 { return float64(part) * 100 / float64(total) }
