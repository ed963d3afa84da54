package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".dcm", cfg.Input.Extension)
	assert.False(t, cfg.Input.StrictGeometry)
	assert.False(t, cfg.Output.Overwrite)
	assert.Equal(t, []float64{0.02, 0.1, 1, 10, 100}, cfg.Render.DoseLevels)
	assert.Equal(t, 0.5, cfg.Render.DoseAlpha)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Len(t, cfg.VolumeOptions(), 1)

	style := cfg.Style()
	assert.Equal(t, cfg.Render.WindowWidth, style.Window.Width)
	assert.Equal(t, cfg.Render.JPEGQuality, style.JPEGQuality)
}

func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Input, cfg.Input)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ctvolume.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "strictGeometry: false")
	assert.Contains(t, string(data), "doseLevels:")

	require.NoError(t, os.WriteFile(path, []byte("input:\n  extension: .DCM\n  strictGeometry: true\noutput:\n  overwrite: true\n"), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ".DCM", cfg.Input.Extension)
	assert.True(t, cfg.Input.StrictGeometry)
	assert.True(t, cfg.Output.Overwrite)
	assert.Equal(t, ".img", cfg.Output.Extension)
	assert.Len(t, cfg.VolumeOptions(), 3)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	require.NoError(t, os.WriteFile(path, []byte("render: [unclosed"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("render:\n  doseAlpha: 2\n  doseLevels: [10, 1]\n"), 0644))
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doseAlpha")
	assert.Contains(t, err.Error(), "doseLevels")
}
