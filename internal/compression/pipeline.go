package compression

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// stepTrace is the append-only step log of one run.
type stepTrace struct {
	steps []Step
}

func newTrace() *stepTrace {
	return &stepTrace{steps: []Step{}}
}

func (t *stepTrace) before(name, text string) {
	t.steps = append(t.steps, Step{Name: name, Before: &text})
}

func (t *stepTrace) after(name, text string) {
	t.steps = append(t.steps, Step{Name: name, After: &text})
}

func (t *stepTrace) record(name, before, after string) {
	t.steps = append(t.steps, Step{Name: name, Before: &before, After: &after})
}

// Engine runs the compression pipeline. It holds only immutable defaults and
// is safe for concurrent use.
type Engine struct {
	defaults Params
	maxInput int
}

// NewEngine creates an engine with the given default tunables. Inputs longer
// than maxInput characters are rejected; zero disables the limit.
func NewEngine(defaults Params, maxInput int) *Engine {
	return &Engine{defaults: defaults, maxInput: maxInput}
}

// Defaults returns the engine's default tunables.
func (e *Engine) Defaults() Params {
	return e.defaults
}

// Compress runs the full pipeline over text:
//
//	format detection → content type → contextual analysis → domain overlay
//	→ predictive encoding → dictionary → pattern recognition → run-length
//	→ statistical model → bit-level estimate
//
// Empty or whitespace-only text yields a zero result with no steps. Only
// invalid options or oversized input return an error.
func (e *Engine) Compress(text string, opts Options) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return &Result{Steps: []Step{}, Insights: Insights{ContentType: ContentTypeText}}, nil
	}
	if err := e.checkLength(text); err != nil {
		return nil, err
	}

	fileType, err := ParseFileType(string(opts.FileType))
	if err != nil {
		return nil, err
	}
	ov, err := buildOverlay(opts.Domain, opts.DomainPatterns)
	if err != nil {
		return nil, err
	}
	params, ignored := ParseAlgorithmParams(e.defaults, opts.AlgorithmParams)

	tr := newTrace()
	working, format := preprocessFormat(DetectFormat(text), text, tr)

	tr.before("Content type analysis", working)
	contentType := DetectContentType(working)
	tr.after("After content analysis", fmt.Sprintf("Detected content type: %s", contentType))

	tr.before("Contextual analysis", working)
	model := NewContextModel(params.Threshold)
	patternsDetected := len(model.Analyze(working))
	tr.after("After contextual analysis", fmt.Sprintf("Detected %d significant patterns", patternsDetected))

	if len(ov) > 0 {
		tr.before("Industry optimization", working)
		working = ov.apply(working)
		tr.after("After industry optimization", working)
	}

	tr.before("Predictive entropy encoding", working)
	working, contexts := PredictiveEncode(working, model.TopContexts(params.Contexts))
	tr.after("After entropy encoding", working)

	tr.before("Dictionary substitution", working)
	working = baseDictionary.Substitute(working)
	tr.after("After dictionary substitution", working)

	tr.before("Pattern recognition", working)
	working, words := RecognizePatterns(working, params.Words)
	tr.after("After pattern recognition", working)

	tr.before("Run-length encoding", working)
	working = RunLengthEncode(working)
	tr.after("After run-length encoding", working)

	tr.before("Adaptive statistical modeling", working)
	working, blocks := StatisticalModel(working, params.BlockSize, params.Symbols)
	tr.after("After adaptive modeling", working)

	tr.before("Bit-level optimization", working)
	packed := estimatePackedBytes(working, fileType)
	tr.after("After bit-level optimization", working)

	mappings := &Mappings{
		Version:   MappingsVersion,
		Domain:    ov.table(),
		Contexts:  contexts,
		Words:     words,
		BlockSize: params.BlockSize,
		Blocks:    blocks,
	}

	originalSize := utf8.RuneCountInString(text)
	compressedSize := utf8.RuneCountInString(working)
	ratio := compressionRatio(originalSize, compressedSize)

	return &Result{
		Compressed: working,
		Ratio:      ratio,
		Steps:      tr.steps,
		Format:     format,
		Mappings:   mappings,
		Insights: Insights{
			ContentType:          contentType,
			ComplexityScore:      estimateComplexityScore(patternsDetected, ratio),
			PatternsDetected:     patternsDetected,
			EstimatedOptimality:  estimateOptimality(patternsDetected, ratio, params.Deep),
			EstimatedPackedBytes: packed,
			ReservedCollisions:   countReserved(text, mappings.Domain),
			IgnoredParams:        ignored,
		},
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		Reversible:     Decode(working, mappings) == text,
	}, nil
}

func (e *Engine) checkLength(text string) error {
	if e.maxInput <= 0 {
		return nil
	}
	if n := utf8.RuneCountInString(text); n > e.maxInput {
		return NewValidationError("text", n, fmt.Errorf("length exceeds maximum %d", e.maxInput))
	}
	return nil
}

// Decode inverts the reversible stages in reverse pipeline order. With
// mappings every stage is undone; without them only run-length and the base
// dictionary are reversed and generated codes are left in place. Format
// pre-processing is never undone. Decode does not fail: malformed input
// yields a best-effort reconstruction.
func Decode(payload string, m *Mappings) string {
	if payload == "" {
		return ""
	}
	if m == nil {
		return baseDictionary.Desubstitute(RunLengthDecode(payload))
	}
	text := UnwindStatisticalModel(payload, m.BlockSize, m.Blocks)
	text = RunLengthDecode(text)
	text = m.Words.Desubstitute(text)
	text = baseDictionary.Desubstitute(text)
	text = m.Contexts.Desubstitute(text)
	return m.Domain.Desubstitute(text)
}

// countReserved counts code points in text that a decoder would treat as
// generated codes.
func countReserved(text string, domain PatternTable) int {
	domainCodes := domain.Codes()
	n := 0
	for _, r := range text {
		if _, ok := domainCodes[r]; ok || isReserved(r) {
			n++
		}
	}
	return n
}
