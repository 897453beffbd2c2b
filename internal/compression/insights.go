package compression

import (
	"math"
	"unicode/utf8"
)

// The estimators below are fixed heuristics, not learned models.

// estimateComplexityScore grows with the number of significant contexts and
// the achieved ratio, capped at 100.
func estimateComplexityScore(patterns int, ratio float64) float64 {
	return round2(math.Min(100, float64(patterns)/10*25+ratio/2))
}

// estimateOptimality adds fixed bonuses for rich context statistics and deep
// analysis to the ratio, capped at 98.
func estimateOptimality(patterns int, ratio float64, deep bool) float64 {
	score := ratio
	if patterns > 20 {
		score += 15
	}
	if deep {
		score += 10
	}
	return round2(math.Min(98, score))
}

// estimatePackedBytes is the size the payload would take if each character
// were stored in the minimum fixed bit width for its alphabet, scaled by the
// file type factor.
func estimatePackedBytes(payload string, ft FileType) int {
	n := utf8.RuneCountInString(payload)
	if n == 0 {
		return 0
	}
	distinct := make(map[rune]struct{})
	for _, r := range payload {
		distinct[r] = struct{}{}
	}
	width := 1.0
	if len(distinct) > 1 {
		width = math.Ceil(math.Log2(float64(len(distinct))))
	}
	return int(math.Ceil(float64(n) * width * ft.Factor() / 8))
}

// compressionRatio is the percentage size reduction, rounded to two
// decimals. Expansion yields a negative ratio.
func compressionRatio(original, compressed int) float64 {
	if original == 0 {
		return 0
	}
	return round2(float64(original-compressed) / float64(original) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
