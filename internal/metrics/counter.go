package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Counter provides methods for counting bytes, tokens, and lines in text
type Counter interface {
	// Count returns the number of bytes, tokens, and lines in the given text
	Count(text string) (bytes, tokens, lines int)
}

// SimpleCounter estimates tokens as bytes/4
type SimpleCounter struct{}

// Count returns bytes, estimated tokens, and lines for the given text
func (c *SimpleCounter) Count(text string) (int, int, int) {
	return len(text), len(text) / 4, countLines(text)
}

// DefaultEncoding is the BPE used by TiktokenCounter (the GPT-4 encoding).
const DefaultEncoding = "cl100k_base"

var loaderOnce sync.Once

// TiktokenCounter counts tokens with a BPE encoding. The encoding tables are
// embedded in the binary, so counting never touches the network.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the named encoding.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns bytes, tokens (using tiktoken), and lines for the given text
func (c *TiktokenCounter) Count(text string) (int, int, int) {
	tokens := c.enc.Encode(text, nil, nil)
	return len(text), len(tokens), countLines(text)
}

// NewCounter returns the counter for an estimator name: "simple" or "tiktoken".
func NewCounter(estimator string) (Counter, error) {
	switch estimator {
	case "", "simple":
		return &SimpleCounter{}, nil
	case "tiktoken":
		return NewTiktokenCounter(DefaultEncoding)
	default:
		return nil, fmt.Errorf("unknown token estimator: %s", estimator)
	}
}

// countLines counts lines the way editors do: a trailing newline does not
// start a new line, and empty text has none.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
