package compression

import (
	"strings"
	"unicode/utf8"
)

// ContentType represents the kind of content being compressed
type ContentType string

const (
	// ContentTypeCode represents source code or markup
	ContentTypeCode ContentType = "code"
	// ContentTypeText represents prose
	ContentTypeText ContentType = "text"
	// ContentTypeDocument represents structured documents (headings, lists, paragraphs)
	ContentTypeDocument ContentType = "document"
	// ContentTypeMixed represents content scoring as both code and document
	ContentTypeMixed ContentType = "mixed"
)

const (
	codeScoreThreshold     = 0.05
	documentScoreThreshold = 0.03
)

var (
	codeIndicators     = []string{"{", "}", "(", ")", ";", "=", "<", ">", "[", "]"}
	documentIndicators = []string{"\n\n", "# ", "## ", "### ", "* ", "- ", "1. "}
)

// DetectContentType classifies text by indicator density. Scores are
// indicator occurrences per character.
func DetectContentType(text string) ContentType {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return ContentTypeText
	}

	code := indicatorScore(text, codeIndicators, n)
	doc := indicatorScore(text, documentIndicators, n)

	switch {
	case code > codeScoreThreshold && doc > documentScoreThreshold:
		return ContentTypeMixed
	case code > codeScoreThreshold:
		return ContentTypeCode
	case doc > documentScoreThreshold:
		return ContentTypeDocument
	default:
		return ContentTypeText
	}
}

func indicatorScore(text string, indicators []string, length int) float64 {
	total := 0
	for _, ind := range indicators {
		total += strings.Count(text, ind)
	}
	return float64(total) / float64(length)
}
