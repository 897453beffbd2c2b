// Package history keeps a local log of compression runs as JSON lines.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/logging"
)

// maxLineSize bounds a single stored record.
const maxLineSize = 16 << 20

var (
	// ErrInvalidRecord indicates an imported record that fails validation.
	ErrInvalidRecord = errors.New("invalid history record")

	// ErrRecordTooLarge indicates a record whose encoded line would not fit
	// in the store.
	ErrRecordTooLarge = errors.New("history record too large")
)

// Record is one stored compression run.
type Record struct {
	ID             string               `json:"id"`
	OriginalText   string               `json:"originalText"`
	CompressedText string               `json:"compressedText"`
	OriginalSize   int                  `json:"originalSize"`
	CompressedSize int                  `json:"compressedSize"`
	Ratio          float64              `json:"ratio"`
	Timestamp      int64                `json:"timestamp"` // epoch milliseconds
	FileType       compression.FileType `json:"fileType,omitempty"`
	AlgorithmInput string               `json:"algorithmInput,omitempty"`
}

// NewRecord builds a record for a finished run.
func NewRecord(original string, res *compression.Result, opts compression.Options, now time.Time) Record {
	return Record{
		ID:             uuid.NewString(),
		OriginalText:   original,
		CompressedText: res.Compressed,
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Ratio:          res.Ratio,
		Timestamp:      now.UnixMilli(),
		FileType:       opts.FileType,
		AlgorithmInput: opts.AlgorithmParams,
	}
}

// Validate checks a record read from an untrusted source.
func (r Record) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("%w: id %q: %v", ErrInvalidRecord, r.ID, err)
	}
	if r.OriginalSize < 0 || r.CompressedSize < 0 {
		return fmt.Errorf("%w: %s: negative size", ErrInvalidRecord, r.ID)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("%w: %s: timestamp must be positive", ErrInvalidRecord, r.ID)
	}
	return nil
}

// Store appends records to a JSON lines file. When the file holds more
// than the configured maximum, the oldest records are dropped.
type Store struct {
	path       string
	maxRecords int
	logger     *logging.Logger

	mu sync.Mutex
}

// NewStore opens a store at path, creating parent directories with 0700.
// maxRecords <= 0 keeps every record.
func NewStore(path string, maxRecords int, logger *logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return &Store{path: path, maxRecords: maxRecords, logger: logger.Named("history")}, nil
}

// Append stores rec, trimming the oldest records past the limit.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLocked(rec); err != nil {
		return err
	}

	if s.maxRecords <= 0 {
		return nil
	}
	records, err := s.readLocked()
	if err != nil {
		return err
	}
	if len(records) <= s.maxRecords {
		return nil
	}
	dropped := len(records) - s.maxRecords
	if err := s.rewriteLocked(records[dropped:]); err != nil {
		return err
	}
	s.logger.Debug(ctx, "history trimmed", zap.Int("dropped", dropped), zap.Int("kept", s.maxRecords))
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Record, error) {
	s.mu.Lock()
	records, err := s.readLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Export writes all records, oldest first, as an indented JSON array.
func (s *Store) Export(w io.Writer) error {
	s.mu.Lock()
	records, err := s.readLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// Import reads a JSON array written by Export and appends every record
// whose id is not already stored. It returns the number added.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var incoming []Record
	if err := json.NewDecoder(r).Decode(&incoming); err != nil {
		return 0, fmt.Errorf("decoding history export: %w", err)
	}
	for _, rec := range incoming {
		if err := rec.Validate(); err != nil {
			return 0, err
		}
		if _, err := encodeRecord(rec); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		seen[rec.ID] = true
	}

	added := 0
	for _, rec := range incoming {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		existing = append(existing, rec)
		added++
	}
	if s.maxRecords > 0 && len(existing) > s.maxRecords {
		existing = existing[len(existing)-s.maxRecords:]
	}
	if err := s.rewriteLocked(existing); err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "history imported", zap.Int("added", added), zap.Int("total", len(existing)))
	return added, nil
}

// Clear removes every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// encodeRecord returns rec as one newline-terminated line that readLocked
// can scan back.
func encodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encoding history record: %w", err)
	}
	if buf.Len() > maxLineSize {
		return nil, fmt.Errorf("%w: %s encodes to %d bytes (max %d)", ErrRecordTooLarge, rec.ID, buf.Len(), maxLineSize)
	}
	return buf.Bytes(), nil
}

func (s *Store) appendLocked(rec Record) error {
	line, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	return f.Close()
}

func (s *Store) readLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return records, nil
}

// rewriteLocked replaces the file atomically via a temp file and rename.
func (s *Store) rewriteLocked(records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return fmt.Errorf("creating temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := encodeRecord(rec)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			return fmt.Errorf("writing history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting history permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing history: %w", err)
	}
	return nil
}
