package compression

import (
	"strconv"
	"strings"
	"unicode"
)

// Params are the tunables of one pipeline run.
type Params struct {
	Contexts  int     `json:"contexts"`
	Words     int     `json:"words"`
	Symbols   int     `json:"symbols"`
	BlockSize int     `json:"block"`
	Threshold float64 `json:"threshold"`
	Deep      bool    `json:"deep"`
}

// DefaultParams returns the reference tunables.
func DefaultParams() Params {
	return Params{
		Contexts:  DefaultTopContexts,
		Words:     DefaultWordCodes,
		Symbols:   DefaultStatSymbols,
		BlockSize: DefaultBlockSize,
		Threshold: DefaultContextThreshold,
	}
}

// ParseAlgorithmParams overlays a free-form "key=value" list onto base.
// Pairs are separated by commas, semicolons or whitespace. Recognized keys
// are contexts, words, symbols, block, threshold and deep. Unknown keys,
// malformed pairs and out-of-range values are returned as ignored.
func ParseAlgorithmParams(base Params, s string) (Params, []string) {
	p := base
	var ignored []string

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			ignored = append(ignored, field)
			continue
		}
		if !p.set(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)) {
			ignored = append(ignored, field)
		}
	}
	return p, ignored
}

func (p *Params) set(key, value string) bool {
	switch key {
	case "contexts":
		return setInt(&p.Contexts, value, 0, MaxTopContexts)
	case "words":
		return setInt(&p.Words, value, 0, MaxWordCodes)
	case "symbols", "stat":
		return setInt(&p.Symbols, value, 0, MaxStatSymbols)
	case "block", "blocksize":
		return setInt(&p.BlockSize, value, MinBlockSize, 1<<20)
	case "threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 || f >= 1 {
			return false
		}
		p.Threshold = f
		return true
	case "deep":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		p.Deep = b
		return true
	default:
		return false
	}
}

func setInt(dst *int, value string, lo, hi int) bool {
	n, err := strconv.Atoi(value)
	if err != nil || n < lo || n > hi {
		return false
	}
	*dst = n
	return true
}

// String renders p in the form ParseAlgorithmParams accepts.
func (p Params) String() string {
	return "contexts=" + strconv.Itoa(p.Contexts) +
		",words=" + strconv.Itoa(p.Words) +
		",symbols=" + strconv.Itoa(p.Symbols) +
		",block=" + strconv.Itoa(p.BlockSize) +
		",threshold=" + strconv.FormatFloat(p.Threshold, 'g', -1, 64) +
		",deep=" + strconv.FormatBool(p.Deep)
}
