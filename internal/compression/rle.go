package compression

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// RunSeparator joins a run count and its character.
	RunSeparator = '×'
	// MinRunLength is the shortest run that is encoded.
	MinRunLength = 3
	// MaxRunLength caps a single count token; longer runs are split.
	MaxRunLength = 1 << 16
)

var runTokenRegex = regexp.MustCompile(`(?s)(\d+)` + string(RunSeparator) + `(.)`)

// rleSegment is one unit of encoder output before digit escaping.
type rleSegment struct {
	r     rune
	count int
	token bool
}

func (s rleSegment) String() string {
	if !s.token {
		return string(s.r)
	}
	return strconv.Itoa(s.count) + string(RunSeparator) + string(s.r)
}

// RunLengthEncode replaces runs of MinRunLength or more identical characters
// with "<count>×<char>". Runs of one or two characters stay literal, except
// the separator itself and literal digits that would be read as part of a
// following count; those are emitted as counted tokens so decoding is exact.
func RunLengthEncode(text string) string {
	if text == "" {
		return text
	}
	runes := []rune(text)
	segs := make([]rleSegment, 0, len(runes))

	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n, c := j-i, runes[i]
		if n >= MinRunLength || c == RunSeparator {
			for n > 0 {
				k := min(n, MaxRunLength)
				segs = append(segs, rleSegment{r: c, count: k, token: true})
				n -= k
			}
		} else {
			for ; n > 0; n-- {
				segs = append(segs, rleSegment{r: c, count: 1})
			}
		}
		i = j
	}

	// Right to left: a literal digit directly before a count would merge
	// into it, so it becomes a token of its own.
	nextIsCount := false
	for k := len(segs) - 1; k >= 0; k-- {
		if !segs[k].token && isASCIIDigit(segs[k].r) && nextIsCount {
			segs[k].token = true
		}
		nextIsCount = segs[k].token
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, s := range segs {
		b.WriteString(s.String())
	}
	return b.String()
}

// RunLengthDecode expands every "<count>×<char>" token left to right.
// Tokens with an unparsable or oversized count are left as they are.
func RunLengthDecode(text string) string {
	if text == "" || !strings.ContainsRune(text, RunSeparator) {
		return text
	}
	matches := runTokenRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n > MaxRunLength {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(strings.Repeat(text[m[4]:m[5]], n))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
