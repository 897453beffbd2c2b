package compression

import (
	"fmt"
	"strings"
)

// FileType is a caller hint about the kind of data being compressed.
// It only scales the packed-size estimate of the bit-level stage.
type FileType string

const (
	// FileTypeText is plain prose or source text (default)
	FileTypeText FileType = "text"
	// FileTypeImage is textual data extracted from images
	FileTypeImage FileType = "image"
	// FileTypeVideo is textual data extracted from video
	FileTypeVideo FileType = "video"
	// FileTypeDocument is structured office or markup documents
	FileTypeDocument FileType = "document"
	// FileTypeGeneric is anything else
	FileTypeGeneric FileType = "generic"
)

var fileTypeFactors = map[FileType]float64{
	FileTypeText:     1.0,
	FileTypeDocument: 0.95,
	FileTypeGeneric:  1.0,
	FileTypeImage:    0.9,
	FileTypeVideo:    0.85,
}

// ParseFileType converts a string into a FileType. Empty input yields FileTypeText.
func ParseFileType(s string) (FileType, error) {
	if s == "" {
		return FileTypeText, nil
	}
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fileTypeFactors[ft]; !ok {
		return "", NewValidationError("fileType", s, fmt.Errorf("must be one of text, image, video, document, generic"))
	}
	return ft, nil
}

// Factor returns the packed-size multiplier for the file type.
func (f FileType) Factor() float64 {
	if v, ok := fileTypeFactors[f]; ok {
		return v
	}
	return 1.0
}

// DataFormat is the structural format detected from raw input.
type DataFormat string

const (
	FormatJSON      DataFormat = "JSON"
	FormatXML       DataFormat = "XML"
	FormatCSV       DataFormat = "CSV"
	FormatPlainText DataFormat = "PlainText"
)

// Step is one record of the pipeline trace. Steps are observational only.
type Step struct {
	Name   string  `json:"name"`
	Before *string `json:"before,omitempty"`
	After  *string `json:"after,omitempty"`
}

// Insights holds the deterministic heuristics reported with every result.
type Insights struct {
	ContentType          ContentType `json:"contentType"`
	ComplexityScore      float64     `json:"complexityScore"`
	PatternsDetected     int         `json:"patternsDetected"`
	EstimatedOptimality  float64     `json:"estimatedOptimality"`
	EstimatedPackedBytes int         `json:"estimatedPackedBytes"`
	ReservedCollisions   int         `json:"reservedCollisions"`
	IgnoredParams        []string    `json:"ignoredParams,omitempty"`
}

// Mappings is the side channel that makes decoding lossless. Every table
// chosen during a run is recorded so Decode can invert it.
type Mappings struct {
	Version   int            `json:"version"`
	Domain    PatternTable   `json:"domain,omitempty"`
	Contexts  PatternTable   `json:"contexts,omitempty"`
	Words     PatternTable   `json:"words,omitempty"`
	BlockSize int            `json:"blockSize"`
	Blocks    []PatternTable `json:"blocks,omitempty"`
}

// MappingsVersion is the current side channel layout.
const MappingsVersion = 1

// Result is the outcome of one compression run.
type Result struct {
	Compressed     string     `json:"compressed"`
	Ratio          float64    `json:"ratio"`
	Steps          []Step     `json:"steps"`
	Format         DataFormat `json:"format,omitempty"`
	Mappings       *Mappings  `json:"mappings,omitempty"`
	Insights       Insights   `json:"insights"`
	OriginalSize   int        `json:"originalSize"`
	CompressedSize int        `json:"compressedSize"`
	// Reversible reports whether Decode(Compressed, Mappings) reproduces the input exactly.
	Reversible bool `json:"reversible"`
}

// Options configures a single compression call.
type Options struct {
	// FileType scales the bit-level estimate. Defaults to FileTypeText.
	FileType FileType
	// Domain selects a built-in industry overlay: medical, financial or technical.
	Domain string
	// DomainPatterns is a caller table applied after the built-in overlay.
	DomainPatterns PatternTable
	// AlgorithmParams is a free-form "key=value" list; see ParseAlgorithmParams.
	AlgorithmParams string
}
