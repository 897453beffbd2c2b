package compression

import (
	"context"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome for one batch input.
type BatchItem struct {
	OriginalSize   int       `json:"originalSize"`
	CompressedSize int       `json:"compressedSize"`
	Ratio          float64   `json:"ratio"`
	Compressed     string    `json:"compressed,omitempty"`
	Mappings       *Mappings `json:"mappings,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
}

// BatchResult aggregates a batch. Failed items contribute zero to the totals.
type BatchResult struct {
	Results             []BatchItem `json:"results"`
	TotalOriginalSize   int         `json:"totalOriginalSize"`
	TotalCompressedSize int         `json:"totalCompressedSize"`
	AverageRatio        float64     `json:"averageRatio"`
}

// Failed returns the number of unsuccessful items.
func (b *BatchResult) Failed() int {
	n := 0
	for _, r := range b.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// BatchCompress compresses texts independently on at most workers
// goroutines, keeping input order. One item's failure never affects its
// siblings. Items not started before ctx is done are marked failed with the
// context error.
func (e *Engine) BatchCompress(ctx context.Context, texts []string, opts Options, workers int) *BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	items := make([]BatchItem, len(texts))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			items[i] = BatchItem{Error: err.Error()}
			continue
		}
		g.Go(func() error {
			items[i] = e.compressItem(ctx, text, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchResult{Results: items}
	for _, it := range items {
		out.TotalOriginalSize += it.OriginalSize
		out.TotalCompressedSize += it.CompressedSize
	}
	if out.TotalOriginalSize > 0 {
		out.AverageRatio = float64(out.TotalOriginalSize-out.TotalCompressedSize) / float64(out.TotalOriginalSize) * 100
	}
	return out
}

func (e *Engine) compressItem(ctx context.Context, text string, opts Options) BatchItem {
	if err := ctx.Err(); err != nil {
		return BatchItem{Error: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return BatchItem{Error: ErrEmptyInput.Error()}
	}
	res, err := e.Compress(text, opts)
	if err != nil {
		return BatchItem{Error: err.Error()}
	}
	return BatchItem{
		OriginalSize:   utf8.RuneCountInString(text),
		CompressedSize: res.CompressedSize,
		Ratio:          res.Ratio,
		Compressed:     res.Compressed,
		Mappings:       res.Mappings,
		Success:        true,
	}
}
