package compression

import (
	"sort"
	"strings"
)

const (
	// ContextWindow is the width, in characters, of an analyzed context.
	ContextWindow = 4
	// DefaultContextThreshold is the probability above which a context is significant.
	DefaultContextThreshold = 0.01
	// DefaultTopContexts is how many contexts predictive encoding replaces.
	DefaultTopContexts = 20
	// MaxTopContexts bounds the predictive context code range.
	MaxTopContexts = 128
	// ContextCodeBase is the first predictive context code point.
	ContextCodeBase rune = 0x2700
)

// ContextCount is a context and the number of times it was seen.
type ContextCount struct {
	Context string
	Count   int
}

// ContextModel accumulates sliding-window context frequencies. A model is
// scoped to one pipeline run and is not safe for concurrent use.
type ContextModel struct {
	counts    map[string]int
	order     []string
	total     int
	threshold float64
}

// NewContextModel creates an empty model. A non-positive threshold selects
// DefaultContextThreshold.
func NewContextModel(threshold float64) *ContextModel {
	if threshold <= 0 {
		threshold = DefaultContextThreshold
	}
	return &ContextModel{
		counts:    make(map[string]int),
		threshold: threshold,
	}
}

// Analyze counts every ContextWindow-wide substring of text and returns the
// contexts whose probability, over all samples seen by this model, exceeds
// the threshold.
func (m *ContextModel) Analyze(text string) map[string]float64 {
	runes := []rune(text)
	for i := 0; i+ContextWindow <= len(runes); i++ {
		ctx := string(runes[i : i+ContextWindow])
		if _, ok := m.counts[ctx]; !ok {
			m.order = append(m.order, ctx)
		}
		m.counts[ctx]++
		m.total++
	}

	significant := make(map[string]float64)
	if m.total == 0 {
		return significant
	}
	for ctx, n := range m.counts {
		if p := float64(n) / float64(m.total); p > m.threshold {
			significant[ctx] = p
		}
	}
	return significant
}

// Total returns the number of samples seen.
func (m *ContextModel) Total() int {
	return m.total
}

// TopContexts returns up to limit contexts by descending count. Ties keep
// first-seen order.
func (m *ContextModel) TopContexts(limit int) []ContextCount {
	if limit <= 0 || len(m.order) == 0 {
		return nil
	}
	out := make([]ContextCount, len(m.order))
	for i, ctx := range m.order {
		out[i] = ContextCount{Context: ctx, Count: m.counts[ctx]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PredictiveEncode replaces each context with ContextCodeBase+rank, highest
// rank first. Replacing an earlier context may remove occurrences of later
// ones; that order is preserved exactly. Contexts holding reserved code
// points are skipped so the inverse stays unambiguous.
func PredictiveEncode(text string, contexts []ContextCount) (string, PatternTable) {
	table := make(PatternTable, 0, len(contexts))
	for i, c := range contexts {
		if i >= MaxTopContexts {
			break
		}
		code := ContextCodeBase + rune(i)
		if strings.IndexFunc(c.Context, isReserved) >= 0 {
			continue
		}
		text = strings.ReplaceAll(text, c.Context, string(code))
		table = append(table, Pattern{From: c.Context, To: code})
	}
	return text, table
}
