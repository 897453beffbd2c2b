package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns its config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "textpack")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  http_port: 9090
  shutdown_timeout: 3s
engine:
  word_codes: 32
  context_threshold: 0.05
history:
  enabled: true
  path: /tmp/textpack-history.jsonl
logging:
  level: debug
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, 32, cfg.Engine.WordCodes)
	assert.Equal(t, 0.05, cfg.Engine.ContextThreshold)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Engine.TopContexts)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 9090\n", 0600)

	t.Setenv("TEXTPACK_SERVER_HTTP_PORT", "7070")
	t.Setenv("TEXTPACK_ENGINE_DEEP_ANALYSIS", "true")
	t.Setenv("TEXTPACK_SERVER_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Engine.DeepAnalysis)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "logging:\n  format: xml\n", 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission checks are skipped on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 9090\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	body := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, body, 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidateConfigPath(t *testing.T) {
	dir := setupTestHome(t)
	home := filepath.Dir(filepath.Dir(dir))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "user config dir", path: filepath.Join(dir, "config.yaml")},
		{name: "nested user file", path: filepath.Join(dir, "env", "prod.yaml")},
		{name: "system dir", path: "/etc/textpack/config.yaml"},
		{name: "outside", path: filepath.Join(home, "config.yaml"), wantErr: true},
		{name: "sibling prefix", path: "/etc/textpackevil/config.yaml", wantErr: true},
		{name: "traversal", path: filepath.Join(dir, "..", "..", "config.yaml"), wantErr: true},
		{name: "dir itself", path: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.http_port", envKey("TEXTPACK_SERVER_HTTP_PORT"))
	assert.Equal(t, "engine.max_batch_items", envKey("TEXTPACK_ENGINE_MAX_BATCH_ITEMS"))
	assert.Equal(t, "config", envKey("TEXTPACK_CONFIG"))
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	info, err := os.Stat(filepath.Join(home, ".config", "textpack"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
