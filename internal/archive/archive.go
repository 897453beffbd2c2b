// Package archive stores a compression result together with its mappings
// so it can be decoded later. An archive is a short binary header followed
// by a JSON envelope, zstd-compressed when that makes it smaller.
package archive

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fyrsmithlabs/textpack/internal/compression"
)

// Header layout: magic, version, flags, CRC-32 (IEEE) of the JSON body.
const (
	headerSize = 10
	version    = 1

	flagZstd byte = 1 << 0

	// minCompressSize skips zstd for bodies where the frame overhead wins.
	minCompressSize = 64

	// MaxEnvelopeSize bounds the decoded JSON body of an archive.
	MaxEnvelopeSize = 64 << 20
)

var magic = [4]byte{'T', 'X', 'P', 'K'}

var (
	// ErrNotArchive indicates data without the archive magic.
	ErrNotArchive = errors.New("not a textpack archive")

	// ErrUnsupportedVersion indicates an archive written by a newer version.
	ErrUnsupportedVersion = errors.New("unsupported archive version")

	// ErrChecksum indicates the envelope does not match its stored checksum.
	ErrChecksum = errors.New("archive checksum mismatch")

	// ErrTooLarge indicates an envelope larger than MaxEnvelopeSize.
	ErrTooLarge = errors.New("archive envelope too large")
)

// Compression levels accepted by NewCodec.
const (
	FastestLevel = int(zstd.SpeedFastest)
	DefaultLevel = int(zstd.SpeedDefault)
	BestLevel    = int(zstd.SpeedBestCompression)
)

// Envelope is the archived form of one compression result.
type Envelope struct {
	Version      int                    `json:"version"`
	Format       compression.DataFormat `json:"format,omitempty"`
	Payload      string                 `json:"payload"`
	Mappings     *compression.Mappings  `json:"mappings,omitempty"`
	Ratio        float64                `json:"ratio"`
	OriginalSize int                    `json:"originalSize"`
	CreatedAt    int64                  `json:"createdAt"` // epoch milliseconds
}

// FromResult builds an envelope for res.
func FromResult(res *compression.Result, now time.Time) *Envelope {
	return &Envelope{
		Version:      version,
		Format:       res.Format,
		Payload:      res.Compressed,
		Mappings:     res.Mappings,
		Ratio:        res.Ratio,
		OriginalSize: res.OriginalSize,
		CreatedAt:    now.UnixMilli(),
	}
}

// Text decodes the payload with the stored mappings.
func (e *Envelope) Text() string {
	return compression.Decode(e.Payload, e.Mappings)
}

// Codec packs and unpacks archives. It is safe for concurrent use.
type Codec struct {
	mu      sync.RWMutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec using the given zstd level.
func NewCodec(level int) (*Codec, error) {
	if level < FastestLevel || level > BestLevel {
		return nil, fmt.Errorf("compression level must be between %d and %d, got %d", FastestLevel, BestLevel, level)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxEnvelopeSize))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Pack serializes env into archive bytes.
func (c *Codec) Pack(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, errors.New("envelope is nil")
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	if len(body) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(body), MaxEnvelopeSize)
	}

	var flags byte
	stored := body
	if len(body) >= minCompressSize {
		c.mu.RLock()
		compressed := c.encoder.EncodeAll(body, nil)
		c.mu.RUnlock()
		if len(compressed) < len(body) {
			stored = compressed
			flags |= flagZstd
		}
	}

	out := make([]byte, headerSize, headerSize+len(stored))
	copy(out, magic[:])
	out[4] = version
	out[5] = flags
	binary.BigEndian.PutUint32(out[6:], crc32.ChecksumIEEE(body))
	return append(out, stored...), nil
}

// Unpack parses archive bytes and verifies the checksum.
func (c *Codec) Unpack(data []byte) (*Envelope, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrNotArchive
	}
	if data[4] != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}

	flags := data[5]
	sum := binary.BigEndian.Uint32(data[6:headerSize])
	body := data[headerSize:]

	if flags&flagZstd != 0 {
		c.mu.RLock()
		decoded, err := c.decoder.DecodeAll(body, nil)
		c.mu.RUnlock()
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return nil, fmt.Errorf("%w: decoded size exceeds %d bytes", ErrTooLarge, MaxEnvelopeSize)
		}
		if err != nil {
			return nil, fmt.Errorf("decompression failed: %w", err)
		}
		body = decoded
	}
	if len(body) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(body), MaxEnvelopeSize)
	}

	if crc32.ChecksumIEEE(body) != sum {
		return nil, ErrChecksum
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &env, nil
}

// WriteFile packs env and writes it to path with 0600 permissions.
func (c *Codec) WriteFile(path string, env *Envelope) error {
	data, err := c.Pack(env)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// ReadFile reads and unpacks the archive at path.
func (c *Codec) ReadFile(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return c.Unpack(data)
}

// Close releases the encoder and decoder.
func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.encoder.Close(); err != nil {
		return fmt.Errorf("error closing encoder: %w", err)
	}
	c.decoder.Close()
	return nil
}
