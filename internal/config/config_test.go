package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilConfigUsesDefaults(t *testing.T) {
	var cfg *Config
	assert.Equal(t, DefaultPortPath, cfg.GetPortPath())
	assert.Equal(t, DefaultBaudRate, cfg.GetBaudRate())
	assert.Equal(t, DefaultScrollDelay, cfg.GetScrollDelay())
	assert.Equal(t, DefaultDrawThreshold, cfg.GetDrawThreshold())
	assert.Equal(t, DefaultDBPath, cfg.GetDBPath())
	assert.Equal(t, DefaultListenAddr, cfg.GetListenAddr())
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := Empty()
	assert.Equal(t, DefaultBaudRate, cfg.GetBaudRate())
	assert.Equal(t, DefaultScrollDelay, cfg.GetScrollDelay())
}

func TestLoadPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"baud_rate": 9600, "scroll_delay_ms": 120}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9600, cfg.GetBaudRate())
	assert.Equal(t, 120*time.Millisecond, cfg.GetScrollDelay())
	// Unset fields fall back to defaults.
	assert.Equal(t, DefaultPortPath, cfg.GetPortPath())
	assert.Equal(t, DefaultDrawThreshold, cfg.GetDrawThreshold())
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
