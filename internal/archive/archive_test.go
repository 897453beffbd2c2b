package archive

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/textpack/internal/compression"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(DefaultLevel)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func compressed(t *testing.T, text string) *compression.Result {
	t.Helper()
	res, err := compression.NewEngine(compression.DefaultParams(), 0).Compress(text, compression.Options{})
	require.NoError(t, err)
	return res
}

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		zstd bool
	}{
		{name: "short text", text: "hi there"},
		{name: "long text is compressed", text: strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40), zstd: true},
		{name: "json", text: `{"name": "textpack", "tags": ["a", "b"]}`},
	}

	codec := newTestCodec(t)
	now := time.UnixMilli(1700000000000)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compressed(t, tt.text)
			env := FromResult(res, now)

			data, err := codec.Pack(env)
			require.NoError(t, err)
			assert.Equal(t, "TXPK", string(data[:4]))
			if tt.zstd {
				assert.Equal(t, flagZstd, data[5]&flagZstd)
			}

			got, err := codec.Unpack(data)
			require.NoError(t, err)
			assert.Equal(t, env.Payload, got.Payload)
			assert.Equal(t, env.Format, got.Format)
			assert.Equal(t, env.Ratio, got.Ratio)
			assert.Equal(t, env.OriginalSize, got.OriginalSize)
			assert.Equal(t, int64(1700000000000), got.CreatedAt)
			assert.Equal(t, version, got.Version)
			assert.Equal(t, env.Text(), got.Text())

			if res.Reversible {
				assert.Equal(t, tt.text, got.Text())
			}
		})
	}
}

func TestCodec_UnpackErrors(t *testing.T) {
	codec := newTestCodec(t)
	good, err := codec.Pack(FromResult(compressed(t, "hello hello hello world"), time.Now()))
	require.NoError(t, err)

	corrupt := []byte{'T', 'X', 'P', 'K', version, 0, 0, 0, 0, 1}
	corrupt = append(corrupt, []byte(`{"version":1,"payload":"x"}`)...)

	future := append([]byte(nil), good...)
	future[4] = 9

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	bomb := append([]byte(nil), good[:headerSize]...)
	bomb[5] = flagZstd
	bomb = enc.EncodeAll(bytes.Repeat([]byte{' '}, MaxEnvelopeSize+1), bomb)
	require.NoError(t, enc.Close())

	badZstd := append([]byte(nil), good[:headerSize]...)
	badZstd[5] = flagZstd
	badZstd = append(badZstd, []byte("not zstd data")...)

	tests := []struct {
		name   string
		data   []byte
		target error
		errMsg string
	}{
		{name: "empty", data: nil, target: ErrNotArchive},
		{name: "wrong magic", data: []byte("PK\x03\x04 zip file"), target: ErrNotArchive},
		{name: "future version", data: future, target: ErrUnsupportedVersion},
		{name: "checksum mismatch", data: corrupt, target: ErrChecksum},
		{name: "bad zstd frame", data: badZstd, errMsg: "decompression failed"},
		{name: "oversized body", data: bomb, target: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Unpack(tt.data)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestCodec_Files(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "out.txpk")
	text := "Patient blood pressure and heart rate were recorded."

	env := FromResult(compressed(t, text), time.Now())
	require.NoError(t, codec.WriteFile(path, env))

	got, err := codec.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, got.Text())

	_, err = codec.ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewCodec_InvalidLevel(t *testing.T) {
	_, err := NewCodec(0)
	assert.Error(t, err)
	_, err = NewCodec(BestLevel + 1)
	assert.Error(t, err)
}

func TestCodec_PackNil(t *testing.T) {
	_, err := newTestCodec(t).Pack(nil)
	assert.Error(t, err)
}
