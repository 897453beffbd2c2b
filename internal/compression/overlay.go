package compression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Built-in industry overlays. Keys are matched as whole words ignoring case.
var industryTables = map[string]PatternTable{
	"medical": {
		{"diagnosis", 'α'},
		{"treatment", 'β'},
		{"patient", 'γ'},
		{"hospital", 'δ'},
		{"prescription", 'ε'},
	},
	"financial": {
		{"transaction", 'φ'},
		{"investment", 'χ'},
		{"portfolio", 'ψ'},
		{"dividend", 'ω'},
		{"nasdaq", 'θ'},
	},
	"technical": {
		{"implementation", 'π'},
		{"architecture", 'Σ'},
		{"database", 'Δ'},
		{"algorithm", 'Γ'},
		{"function", 'Λ'},
	},
}

// Domains lists the built-in overlay tags in lexical order.
func Domains() []string {
	out := make([]string, 0, len(industryTables))
	for k := range industryTables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IndustryTable returns a copy of the built-in overlay for domain.
func IndustryTable(domain string) (PatternTable, bool) {
	t, ok := industryTables[strings.ToLower(domain)]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// overlayLayer is one word-boundary table of the domain stage.
type overlayLayer struct {
	table    PatternTable
	foldCase bool
}

// overlay is the effective domain table for a run: the built-in industry
// layer first, then the caller layer.
type overlay []overlayLayer

func (o overlay) apply(text string) string {
	for _, layer := range o {
		text = layer.table.SubstituteWords(text, layer.foldCase)
	}
	return text
}

// table flattens the layers into the table recorded in Mappings.
func (o overlay) table() PatternTable {
	var out PatternTable
	for _, layer := range o {
		out = append(out, layer.table...)
	}
	return out
}

// SubstituteWords replaces whole-word occurrences of each pattern with its
// code, in table order. Word boundaries follow ASCII word characters.
func (t PatternTable) SubstituteWords(text string, foldCase bool) string {
	for _, p := range t {
		if p.From == "" {
			continue
		}
		expr := `\b` + regexp.QuoteMeta(p.From) + `\b`
		if foldCase {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		text = re.ReplaceAllLiteralString(text, string(p.To))
	}
	return text
}

// reservedRanges are the code point blocks owned by generated tables.
var reservedRanges = []struct{ lo, hi rune }{
	{WordCodeBase, WordCodeBase + MaxWordCodes - 1},
	{StatCodeBase, StatCodeBase + MaxStatSymbols - 1},
	{ContextCodeBase, ContextCodeBase + MaxTopContexts - 1},
}

// isReserved reports whether r belongs to a generated table or the base
// dictionary.
func isReserved(r rune) bool {
	for _, rr := range reservedRanges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	_, ok := baseCodes[r]
	return ok
}

var baseCodes = baseDictionary.Codes()

// ValidateDomainTable checks a caller table against the codes already taken
// in this run. Codes must be single non-ASCII, non-space runes outside the
// reserved ranges, and keys must be unique.
func ValidateDomainTable(t PatternTable, taken map[rune]string) error {
	keys := make(map[string]bool, len(t))
	for _, p := range t {
		if strings.TrimSpace(p.From) == "" {
			return NewValidationError("domainPatterns", p.From, fmt.Errorf("pattern must not be empty"))
		}
		if keys[p.From] {
			return NewValidationError("domainPatterns", p.From, fmt.Errorf("duplicate pattern"))
		}
		keys[p.From] = true

		if p.To < 0x80 || unicode.IsSpace(p.To) || unicode.IsDigit(p.To) {
			return NewValidationError("domainPatterns", p.From, fmt.Errorf("code %q must be a non-ASCII symbol", p.To))
		}
		if p.To == RunSeparator || isReserved(p.To) {
			return NewValidationError("domainPatterns", p.From, fmt.Errorf("code %q collides with a reserved code point", p.To))
		}
		if prev, ok := taken[p.To]; ok {
			return NewValidationError("domainPatterns", p.From, fmt.Errorf("code %q already assigned to %q", p.To, prev))
		}
		taken[p.To] = p.From

		for _, r := range p.From {
			if isReserved(r) {
				return NewValidationError("domainPatterns", p.From, fmt.Errorf("pattern contains reserved code point %q", r))
			}
		}
	}
	return nil
}

// buildOverlay resolves the domain tag and caller table into the effective
// overlay for a run.
func buildOverlay(domain string, custom PatternTable) (overlay, error) {
	var o overlay
	taken := make(map[rune]string)
	builtin := make(map[string]bool)

	if domain != "" {
		t, ok := IndustryTable(domain)
		if !ok {
			return nil, NewValidationError("domain", domain,
				fmt.Errorf("unknown domain, expected one of %s", strings.Join(Domains(), ", ")))
		}
		for _, p := range t {
			taken[p.To] = p.From
			builtin[p.From] = true
		}
		o = append(o, overlayLayer{table: t, foldCase: true})
	}

	if len(custom) > 0 {
		// Mappings records both layers in one table, so keys must stay unique
		// across them.
		for _, p := range custom {
			if builtin[p.From] {
				return nil, NewValidationError("domainPatterns", p.From,
					fmt.Errorf("duplicate pattern, already defined by domain %q", domain))
			}
		}
		if err := ValidateDomainTable(custom, taken); err != nil {
			return nil, err
		}
		o = append(o, overlayLayer{table: custom.Clone()})
	}
	return o, nil
}
