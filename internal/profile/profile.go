// Package profile loads custom domain profiles: named pattern tables that
// are passed to the compression engine as Options.DomainPatterns.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/textpack/internal/compression"
)

var (
	// ErrUnsupportedFormat indicates a profile file with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported profile format")

	// ErrInvalidProfile indicates a profile that failed validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrNotFound indicates no profile with the requested id.
	ErrNotFound = errors.New("profile not found")
)

const maxProfileSize = 256 * 1024

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// Profile is a user-defined pattern table for a domain.
type Profile struct {
	ID           string                   `json:"id" toml:"id"`
	Name         string                   `json:"name" toml:"name"`
	Description  string                   `json:"description,omitempty" toml:"description"`
	Patterns     compression.PatternTable `json:"patterns" toml:"-"`
	Created      int64                    `json:"created" toml:"created"`
	LastModified int64                    `json:"lastModified,omitempty" toml:"last_modified"`

	// Source is the file the profile was loaded from, if any.
	Source string `json:"-" toml:"-"`
}

// Validate checks the profile metadata and its pattern table.
func (p *Profile) Validate() error {
	if !idPattern.MatchString(p.ID) {
		return fmt.Errorf("%w: id %q must match %s", ErrInvalidProfile, p.ID, idPattern)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidProfile, p.ID)
	}
	if len(p.Patterns) == 0 {
		return fmt.Errorf("%w: %s: at least one pattern is required", ErrInvalidProfile, p.ID)
	}
	if p.Created < 0 || p.LastModified < 0 {
		return fmt.Errorf("%w: %s: timestamps must not be negative", ErrInvalidProfile, p.ID)
	}
	if err := compression.ValidateDomainTable(p.Patterns, make(map[rune]string)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProfile, p.ID, err)
	}
	return nil
}

// Table returns a copy of the profile's patterns in file order.
func (p *Profile) Table() compression.PatternTable {
	return p.Patterns.Clone()
}

// LoadFile reads and validates a .json or .toml profile.
func LoadFile(path string) (*Profile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxProfileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrInvalidProfile, path, info.Size(), maxProfileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	p, err := Parse(data, Format(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path
	return p, nil
}

// Format returns "json" or "toml" for a profile path, or "" when the
// extension is not a profile format.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// Parse decodes and validates a profile. Pattern order follows the
// document order for both formats.
func Parse(data []byte, format string) (*Profile, error) {
	var (
		p   *Profile
		err error
	)
	switch format {
	case "json":
		p, err = parseJSON(data)
	case "toml":
		p, err = parseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseJSON(data []byte) (*Profile, error) {
	var p Profile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decoding json: %v", ErrInvalidProfile, err)
	}
	return &p, nil
}

// parseTOML reads [patterns] as a plain table and restores its key order
// from the decoder metadata.
func parseTOML(data []byte) (*Profile, error) {
	var doc struct {
		Profile
		Patterns map[string]string `toml:"patterns"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding toml: %v", ErrInvalidProfile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidProfile, undecoded)
	}

	p := doc.Profile
	p.Patterns = compression.PatternTable{}
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "patterns" {
			continue
		}
		pattern, err := compression.NewPattern(key[1], doc.Patterns[key[1]])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
		p.Patterns = append(p.Patterns, pattern)
	}
	return &p, nil
}
