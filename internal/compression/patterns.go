package compression

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// WordCodeBase is the first pattern recognition code point.
	WordCodeBase rune = 0x2400
	// DefaultWordCodes is how many frequent words get a code.
	DefaultWordCodes = 10
	// MaxWordCodes bounds the word code range.
	MaxWordCodes = 64
	// minWordFrequency and minWordLength are exclusive lower bounds.
	minWordFrequency = 3
	minWordLength    = 3

	// StatCodeBase is the first statistical model code point.
	StatCodeBase rune = 0x2500
	// DefaultStatSymbols is how many characters per block get a code.
	DefaultStatSymbols = 5
	// MaxStatSymbols bounds the statistical code range.
	MaxStatSymbols = 64
	// DefaultBlockSize is the statistical model block width in characters.
	DefaultBlockSize = 500
	// MinBlockSize is the smallest accepted block width.
	MinBlockSize = 16
)

// RecognizePatterns finds space-separated words occurring more than three
// times and longer than three characters, and replaces the most frequent
// ones with WordCodeBase+rank on word boundaries.
func RecognizePatterns(text string, limit int) (string, PatternTable) {
	if text == "" || limit <= 0 {
		return text, nil
	}
	limit = min(limit, MaxWordCodes)

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Split(text, " ") {
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}

	var candidates []string
	for _, w := range order {
		if counts[w] > minWordFrequency && utf8.RuneCountInString(w) > minWordLength {
			candidates = append(candidates, w)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return counts[candidates[i]] > counts[candidates[j]]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	table := make(PatternTable, 0, len(candidates))
	for i, w := range candidates {
		code := WordCodeBase + rune(i)
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllLiteralString(text, string(code))
		table = append(table, Pattern{From: w, To: code})
	}
	return text, table
}

// StatisticalModel splits text into blocks of blockSize characters and, in
// each block, replaces the symbols most frequent characters with
// StatCodeBase+rank. Ties keep first-seen order. Substitution is one code
// point for one code point, so block boundaries survive in the output.
func StatisticalModel(text string, blockSize, symbols int) (string, []PatternTable) {
	if text == "" || symbols <= 0 {
		return text, nil
	}
	if blockSize < MinBlockSize {
		blockSize = DefaultBlockSize
	}
	symbols = min(symbols, MaxStatSymbols)

	runes := []rune(text)
	var tables []PatternTable
	for start := 0; start < len(runes); start += blockSize {
		block := runes[start:min(start+blockSize, len(runes))]
		tables = append(tables, encodeBlock(block, symbols))
	}
	return string(runes), tables
}

// encodeBlock rewrites block in place and returns its table.
func encodeBlock(block []rune, symbols int) PatternTable {
	counts := make(map[rune]int)
	var order []rune
	for _, r := range block {
		if _, ok := counts[r]; !ok {
			order = append(order, r)
		}
		counts[r]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > symbols {
		order = order[:symbols]
	}

	codes := make(map[rune]rune, len(order))
	table := make(PatternTable, 0, len(order))
	for i, r := range order {
		code := StatCodeBase + rune(i)
		codes[r] = code
		table = append(table, Pattern{From: string(r), To: code})
	}
	for i, r := range block {
		if code, ok := codes[r]; ok {
			block[i] = code
		}
	}
	return table
}

// UnwindStatisticalModel reverses StatisticalModel using the recorded
// per-block tables. Missing tables leave their blocks untouched.
func UnwindStatisticalModel(text string, blockSize int, tables []PatternTable) string {
	if text == "" || len(tables) == 0 {
		return text
	}
	if blockSize < MinBlockSize {
		blockSize = DefaultBlockSize
	}

	runes := []rune(text)
	for b, start := 0, 0; start < len(runes) && b < len(tables); b, start = b+1, start+blockSize {
		block := runes[start:min(start+blockSize, len(runes))]
		decoded := make(map[rune]rune, len(tables[b]))
		for _, p := range tables[b] {
			if r, size := utf8.DecodeRuneInString(p.From); size > 0 && size == len(p.From) {
				decoded[p.To] = r
			}
		}
		for i, r := range block {
			if orig, ok := decoded[r]; ok {
				block[i] = orig
			}
		}
	}
	return string(runes)
}
