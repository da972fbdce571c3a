package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "json", s.OutputFormat)
	assert.Equal(t, 0, s.MaxVariations)
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"
output_format = "text"
max_variations = 50
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "text", s.OutputFormat)
	assert.Equal(t, 50, s.MaxVariations)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o644))

	t.Setenv("PROMPTWEAVER_LOG_LEVEL", "error")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", s.LogLevel)
}
