package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/logging"
)

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRegistry_Load(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "legal.json", legalJSON)
	writeProfile(t, dir, "chem.toml", "id = \"chem\"\nname = \"Chemistry\"\n[patterns]\nmolecule = \"ж\"\n")
	writeProfile(t, dir, "broken.json", `{"id":"broken"}`)
	writeProfile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0700))

	logger := logging.NewTestLogger()
	reg := NewRegistry(dir, logger.Logger)

	err := reg.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)

	profiles := reg.List()
	require.Len(t, profiles, 2)
	assert.Equal(t, "chem", profiles[0].ID)
	assert.Equal(t, "legal", profiles[1].ID)

	logger.AssertLogged(t, zapcore.WarnLevel, "skipping profile")
	logger.AssertField(t, "profiles loaded", "count", int64(2))
	logger.AssertField(t, "profiles loaded", "skipped", int64(1))
}

func TestRegistry_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "a.json", legalJSON)
	writeProfile(t, dir, "b.toml", legalTOML)

	reg := NewRegistry(dir, nil)
	err := reg.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_GetAndAdd(t *testing.T) {
	reg := NewRegistry("", nil)
	require.NoError(t, reg.Load(context.Background()))

	_, err := reg.Get("legal")
	assert.ErrorIs(t, err, ErrNotFound)

	p := &Profile{ID: "legal", Name: "Legal", Patterns: compression.PatternTable{{From: "plaintiff", To: 'ж'}}}
	require.NoError(t, reg.Add(p))

	got, err := reg.Get("legal")
	require.NoError(t, err)
	assert.Same(t, p, got)

	assert.Error(t, reg.Add(&Profile{ID: "empty", Name: "Empty"}))
}

func TestRegistry_LoadMissingDir(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "missing"), nil)
	err := reg.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistry_Watch(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, nil)
	require.NoError(t, reg.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	writeProfile(t, dir, "legal.json", legalJSON)

	assert.Eventually(t, func() bool {
		_, err := reg.Get("legal")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "legal.json")))
	assert.Eventually(t, func() bool {
		return len(reg.List()) == 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRegistry_WatchWithoutDir(t *testing.T) {
	assert.Error(t, NewRegistry("", nil).Watch(context.Background()))
}
