package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kinds of tallied items.
const (
	KindFile     = "file"     // one exported file's content
	KindDocument = "document" // the whole rendered document
)

// MetricKey identifies a specific metric by kind and key
type MetricKey struct {
	Type string
	Key  string
}

// String returns a string representation of the MetricKey
func (k MetricKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.Key)
}

// NewKey creates a new MetricKey with the given type and key
func NewKey(typ, key string) MetricKey {
	return MetricKey{Type: typ, Key: key}
}

// MetricItem stores the metrics for a specific item
type MetricItem struct {
	Bytes  int `json:"bytes"`
	Tokens int `json:"tokens"`
	Lines  int `json:"lines"`
}

// Add adds the given metrics to this item
func (m *MetricItem) Add(bytes, tokens, lines int) {
	m.Bytes += bytes
	m.Tokens += tokens
	m.Lines += lines
}

// OutputMetrics tallies the size of what an export produced. Counting is
// synchronous; an export is one pass over the selected files.
type OutputMetrics struct {
	Items map[MetricKey]MetricItem
	Ctr   Counter
}

// NewOutputMetrics creates an empty tally. A nil counter uses SimpleCounter.
func NewOutputMetrics(counter Counter) *OutputMetrics {
	if counter == nil {
		counter = &SimpleCounter{}
	}
	return &OutputMetrics{
		Items: make(map[MetricKey]MetricItem),
		Ctr:   counter,
	}
}

// Add counts content and accumulates it under (typ, key).
func (m *OutputMetrics) Add(typ, key string, content string) {
	bytes, tokens, lines := m.Ctr.Count(content)
	k := MetricKey{Type: typ, Key: key}
	item := m.Items[k]
	item.Add(bytes, tokens, lines)
	m.Items[k] = item
}

// Reset drops every item, keeping the counter.
func (m *OutputMetrics) Reset() {
	m.Items = make(map[MetricKey]MetricItem)
}

// SumBy returns the sum of all metrics for the given type
func (m *OutputMetrics) SumBy(typeName string) MetricItem {
	var sum MetricItem
	for k, v := range m.Items {
		if k.Type == typeName {
			sum.Add(v.Bytes, v.Tokens, v.Lines)
		}
	}
	return sum
}

// Keys returns the keys of one type in sorted order.
func (m *OutputMetrics) Keys(typeName string) []string {
	var out []string
	for k := range m.Items {
		if k.Type == typeName {
			out = append(out, k.Key)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON marshals the metrics to JSON with string keys
func (m *OutputMetrics) MarshalJSON() ([]byte, error) {
	result := make(map[string]MetricItem, len(m.Items))
	for k, v := range m.Items {
		result[k.String()] = v
	}
	return json.Marshal(result)
}
