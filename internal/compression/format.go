package compression

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	xmlInterTagSpace = regexp.MustCompile(`>\s+<`)
	xmlSpaceRun      = regexp.MustCompile(`\s+`)
)

// DetectFormat classifies text. The first match wins in the order JSON,
// XML, CSV, PlainText.
func DetectFormat(text string) DataFormat {
	switch {
	case isValidJSON(text):
		return FormatJSON
	case isValidXML(text):
		return FormatXML
	case looksLikeCSV(text):
		return FormatCSV
	default:
		return FormatPlainText
	}
}

func isValidJSON(text string) bool {
	return json.Valid([]byte(text))
}

// isValidXML requires a single well-formed root element with nothing but
// whitespace, comments or processing instructions outside it.
func isValidXML(text string) bool {
	if !strings.Contains(text, "<") {
		return false
	}
	dec := xml.NewDecoder(strings.NewReader(text))
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return roots == 1 && depth == 0
		}
		if err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return false
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return false
			}
		}
	}
}

func looksLikeCSV(text string) bool {
	if !strings.Contains(text, ",") || !strings.Contains(text, "\n") {
		return false
	}
	first, _, _ := strings.Cut(text, "\n")
	return strings.Contains(first, ",")
}

// minifyJSON removes insignificant whitespace, keeping member order.
func minifyJSON(text string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// minifyXML strips whitespace between tags and collapses whitespace runs.
func minifyXML(text string) string {
	text = xmlInterTagSpace.ReplaceAllString(text, "><")
	text = xmlSpaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// preprocessFormat applies the format-specific pre-processing and records
// the outcome. Malformed structured input falls back to plain text.
func preprocessFormat(format DataFormat, text string, tr *stepTrace) (string, DataFormat) {
	switch format {
	case FormatJSON:
		minified, err := minifyJSON(text)
		if err != nil {
			tr.record("Format detection", "Detected JSON format", "Minification failed, using plain text: "+err.Error())
			return text, FormatPlainText
		}
		tr.record("Format detection", "Detected JSON format", "Minified before compression")
		return minified, FormatJSON
	case FormatXML:
		tr.record("Format detection", "Detected XML format", "Minified before compression")
		return minifyXML(text), FormatXML
	case FormatCSV:
		tr.record("Format detection", "Detected CSV format", "Applied standard compression")
		return text, FormatCSV
	default:
		tr.record("Format detection", "No specific format detected", "Applied standard compression")
		return text, FormatPlainText
	}
}
