package export

import (
	"errors"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/hayeah/treetxt/internal/tree"
)

var errBinary = errors.New("binary or non-UTF-8 content")

// readText reads a selected file at its symlink-resolved path inside root and
// rejects content that is not text.
func readText(root, rel string) (string, error) {
	p, err := tree.ResolvePath(root, rel)
	if err != nil {
		return "", &FileReadError{Path: rel, Err: err}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", &FileReadError{Path: rel, Err: err}
	}
	if !utf8.Valid(data) || isBinaryFile(data) {
		return "", &FileReadError{Path: rel, Err: errBinary}
	}
	return string(data), nil
}

// isBinaryFile checks if content is likely binary by sampling the first 100 runes
// and checking if they are printable Unicode characters.
func isBinaryFile(content []byte) bool {
	const sampleSize = 100
	var nonPrintable int
	var totalRunes int

	for i := 0; i < len(content) && totalRunes < sampleSize; {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError || r == 0 {
			nonPrintable++
		} else if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			nonPrintable++
		}
		i += size
		totalRunes++
	}

	if totalRunes == 0 {
		return false
	}
	return float64(nonPrintable)/float64(totalRunes) > 0.1
}
