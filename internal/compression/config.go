package compression

import "fmt"

// Config holds configuration for compression operations
type Config struct {
	// Default tunables; a call's AlgorithmParams override them
	TopContexts      int
	ContextThreshold float64
	WordCodes        int
	StatSymbols      int
	BlockSize        int
	DeepAnalysis     bool

	// Maximum input length in characters (0 disables the check)
	MaxInputLength int

	// Worker pool size for batches (0 uses GOMAXPROCS)
	BatchWorkers int
}

// NewDefaultConfig returns the reference configuration.
func NewDefaultConfig() Config {
	p := DefaultParams()
	return Config{
		TopContexts:      p.Contexts,
		ContextThreshold: p.Threshold,
		WordCodes:        p.Words,
		StatSymbols:      p.Symbols,
		BlockSize:        p.BlockSize,
		MaxInputLength:   4 << 20,
	}
}

// Validate checks config for errors.
func (c Config) Validate() error {
	if c.TopContexts < 0 || c.TopContexts > MaxTopContexts {
		return fmt.Errorf("top contexts must be between 0 and %d, got %d", MaxTopContexts, c.TopContexts)
	}
	if c.ContextThreshold <= 0 || c.ContextThreshold >= 1 {
		return fmt.Errorf("context threshold must be in (0, 1), got %g", c.ContextThreshold)
	}
	if c.WordCodes < 0 || c.WordCodes > MaxWordCodes {
		return fmt.Errorf("word codes must be between 0 and %d, got %d", MaxWordCodes, c.WordCodes)
	}
	if c.StatSymbols < 0 || c.StatSymbols > MaxStatSymbols {
		return fmt.Errorf("stat symbols must be between 0 and %d, got %d", MaxStatSymbols, c.StatSymbols)
	}
	if c.BlockSize < MinBlockSize {
		return fmt.Errorf("block size must be at least %d, got %d", MinBlockSize, c.BlockSize)
	}
	if c.MaxInputLength < 0 {
		return fmt.Errorf("max input length must be >= 0, got %d", c.MaxInputLength)
	}
	if c.BatchWorkers < 0 {
		return fmt.Errorf("batch workers must be >= 0, got %d", c.BatchWorkers)
	}
	return nil
}

// Params converts the configured defaults into pipeline tunables.
func (c Config) Params() Params {
	return Params{
		Contexts:  c.TopContexts,
		Words:     c.WordCodes,
		Symbols:   c.StatSymbols,
		BlockSize: c.BlockSize,
		Threshold: c.ContextThreshold,
		Deep:      c.DeepAnalysis,
	}
}
