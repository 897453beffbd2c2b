package compression

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Pattern maps a multi-character substring to a single reserved code point.
type Pattern struct {
	From string
	To   rune
}

// PatternTable is an ordered substitution table. Application order is part
// of the contract: earlier patterns change what later patterns can match.
type PatternTable []Pattern

// baseDictionary is the generic table applied to every input.
var baseDictionary = PatternTable{
	{"the", '†'},
	{"and", '‡'},
	{"ing", '§'},
	{"ion", '¶'},
	{"that", '©'},
	{"have", '®'},
	{"this", '™'},
	{"with", '¥'},
	{"from", '€'},
	{"your", '£'},
	{"tion", '∞'},
	{"ment", '∆'},
	{"able", '∑'},
	{"ould", '∂'},
	{"ight", 'µ'},
	{"there", 'Ω'},
	{"about", '≈'},
	{"which", '√'},
}

// BaseDictionary returns a copy of the generic substitution table.
func BaseDictionary() PatternTable {
	return baseDictionary.Clone()
}

// Clone returns an independent copy of t.
func (t PatternTable) Clone() PatternTable {
	if t == nil {
		return nil
	}
	out := make(PatternTable, len(t))
	copy(out, t)
	return out
}

// Substitute replaces every non-overlapping occurrence of each pattern with
// its code, in table order.
func (t PatternTable) Substitute(text string) string {
	if text == "" {
		return text
	}
	for _, p := range t {
		if p.From == "" {
			continue
		}
		text = strings.ReplaceAll(text, p.From, string(p.To))
	}
	return text
}

// Desubstitute replaces every code with its pattern, in table order.
func (t PatternTable) Desubstitute(text string) string {
	if text == "" {
		return text
	}
	for _, p := range t {
		if p.From == "" {
			continue
		}
		text = strings.ReplaceAll(text, string(p.To), p.From)
	}
	return text
}

// Code returns the code assigned to pattern.
func (t PatternTable) Code(pattern string) (rune, bool) {
	for _, p := range t {
		if p.From == pattern {
			return p.To, true
		}
	}
	return 0, false
}

// Codes returns the set of code points used by t.
func (t PatternTable) Codes() map[rune]string {
	codes := make(map[rune]string, len(t))
	for _, p := range t {
		codes[p.To] = p.From
	}
	return codes
}

// MarshalJSON encodes t as a JSON object whose members follow table order.
func (t PatternTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.From)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(string(p.To))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping member order. Every value must
// be exactly one code point and keys must be unique.
func (t *PatternTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("pattern table must be a JSON object")
	}

	table := PatternTable{}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("pattern %q: %w", key, err)
		}
		pattern, err := NewPattern(key, value)
		if err != nil {
			return err
		}
		if seen[key] {
			return NewValidationError("pattern", key, fmt.Errorf("duplicate key"))
		}
		seen[key] = true
		table = append(table, pattern)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = table
	return nil
}

// NewPattern builds a pattern whose code is given as a one-character string.
func NewPattern(from, code string) (Pattern, error) {
	r, err := singleRune(code)
	if err != nil {
		return Pattern{}, NewValidationError("pattern code", from, err)
	}
	return Pattern{From: from, To: r}, nil
}

// singleRune returns the only code point in s.
func singleRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("code must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0, fmt.Errorf("code is not valid UTF-8")
	}
	return r, nil
}
