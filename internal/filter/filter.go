// Package filter narrows a list of relative paths with an fzf-like query.
//
// The query is split on whitespace and every term must match. A plain term
// is a case-insensitive fuzzy subsequence match (sahilm/fuzzy). Operators
// switch a term to literal matching:
//
//	^src      path starts with "src"
//	.go$      path ends with ".go"
//	'main     "main" starts a word
//	'main'    "main" is a whole word
//	!test     path does not contain "test"
//
// A term holding glob metacharacters (* ? [ {) is matched against the whole
// path with doublestar, so **/*.go works; it combines with ! only.
package filter

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hayeah/treetxt/internal/set"
	"github.com/sahilm/fuzzy"
)

type term struct {
	raw    string
	text   string // lower-cased
	fuzzy  bool
	glob   bool
	negate bool
	head   bool
	tail   bool
	word   bool // left boundary
	whole  bool // both boundaries
}

// Query is a parsed filter.
type Query struct {
	terms []term
}

// Parse compiles a query. An empty query matches every path.
func Parse(query string) (Query, error) {
	var q Query
	for _, raw := range strings.Fields(query) {
		t, err := parseTerm(raw)
		if err != nil {
			return Query{}, err
		}
		q.terms = append(q.terms, t)
	}
	return q, nil
}

func parseTerm(raw string) (term, error) {
	t := term{raw: raw}
	s := raw
	if strings.HasPrefix(s, "!") {
		t.negate = true
		s = s[1:]
	}
	if strings.ContainsAny(s, "*?[{") {
		if !doublestar.ValidatePattern(s) {
			return term{}, fmt.Errorf("invalid glob pattern %q", s)
		}
		t.glob = true
		t.text = s
		return t, nil
	}
	if strings.HasPrefix(s, "'") {
		s = s[1:]
		t.word = true
		if len(s) > 0 && strings.HasSuffix(s, "'") {
			t.whole = true
			s = s[:len(s)-1]
		}
	}
	if strings.HasPrefix(s, "^") {
		t.head = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "$") {
		t.tail = true
		s = s[:len(s)-1]
	}
	if s == "" {
		return term{}, fmt.Errorf("empty term in filter %q", raw)
	}
	t.text = strings.ToLower(s)
	t.fuzzy = !(t.negate || t.word || t.head || t.tail)
	return t, nil
}

// Match returns the paths satisfying every term, in input order.
func (q Query) Match(paths []string) []string {
	keep := make([]bool, len(paths))
	for i := range keep {
		keep[i] = true
	}
	for _, t := range q.terms {
		if t.fuzzy {
			hit := set.NewSet[int]()
			for _, m := range fuzzy.Find(t.text, paths) {
				hit.Add(m.Index)
			}
			for i := range keep {
				keep[i] = keep[i] && hit.Contains(i)
			}
			continue
		}
		for i, p := range paths {
			if keep[i] {
				candidate := p
				if !t.glob {
					candidate = strings.ToLower(p)
				}
				keep[i] = t.literal(candidate) != t.negate
			}
		}
	}

	out := make([]string, 0, len(paths))
	for i, p := range paths {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Paths parses query and applies it to paths.
func Paths(query string, paths []string) ([]string, error) {
	q, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return q.Match(paths), nil
}

func (t term) literal(path string) bool {
	if t.glob {
		ok, _ := doublestar.Match(t.text, path)
		return ok
	}
	if t.head && t.tail && !t.word {
		return path == t.text
	}
	region, offset := path, 0
	if t.head {
		if !strings.HasPrefix(path, t.text) {
			return false
		}
		region = path[:len(t.text)]
	}
	if t.tail {
		if !strings.HasSuffix(path, t.text) {
			return false
		}
		offset = len(path) - len(t.text)
		region = path[offset:]
	}
	if !t.word {
		return strings.Contains(region, t.text)
	}
	// boundaries are judged against the whole path, not the anchored region
	for from := 0; from <= len(region)-len(t.text); {
		rel := strings.Index(region[from:], t.text)
		if rel < 0 {
			return false
		}
		at := offset + from + rel
		if boundaryBefore(path, at) && (!t.whole || boundaryAfter(path, at+len(t.text))) {
			return true
		}
		from += rel + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i == len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
