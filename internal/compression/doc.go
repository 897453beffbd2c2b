// Package compression implements textpack's multi-stage reversible text
// compression pipeline.
//
// A run threads one working buffer through a fixed sequence of stages and
// records an append-only step trace:
//
//  1. Format detection: JSON is compacted, XML loses inter-tag whitespace,
//     CSV and plain text pass through.
//  2. Content type analysis: code, text, document or mixed, by indicator density.
//  3. Contextual analysis: 4-character sliding window frequencies.
//  4. Industry optimization (optional): built-in medical, financial or
//     technical tables plus caller-supplied patterns, matched on word boundaries.
//  5. Predictive entropy encoding: the top contexts become U+2700+rank.
//  6. Dictionary substitution: 18 common substrings become single symbols.
//  7. Pattern recognition: frequent words become U+2400+rank.
//  8. Run-length encoding: runs of three or more become "<count>×<char>".
//  9. Adaptive statistical modeling: per 500-character block, the five most
//     frequent characters become U+2500+rank.
//  10. Bit-level optimization: a packed size estimate only; the payload is untouched.
//
// # Reversibility
//
// Every table chosen during a run is returned in Result.Mappings. Decode with
// those mappings inverts stages 4 through 9 exactly, provided the input does
// not already contain reserved code points (see Insights.ReservedCollisions)
// and built-in overlays did not fold the case of a matched word. Decode
// without mappings only reverses run-length and dictionary substitution.
//
// Run-length encoding escapes the separator and any literal digit that would
// merge into a following count, so it is lossless for every input.
//
// # Heuristics
//
// Insights are deterministic estimates, not model output:
// estimateComplexityScore, estimateOptimality and estimatePackedBytes.
//
// # Usage
//
//	svc, err := compression.NewService(compression.NewDefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	res, err := svc.Compress(ctx, text, compression.Options{Domain: "medical"})
//	if err != nil {
//	    return err
//	}
//	out, err := svc.Decompress(ctx, res.Compressed, res.Mappings)
package compression
