package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, byte(80), cfg.TargetTemp)
	assert.Equal(t, byte(85), cfg.CutoffTemp)
	assert.Equal(t, 200, cfg.DefaultClock)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modminer.yaml")
	content := "device_paths:\n  - /dev/ttyACM0\n  - /dev/ttyACM1\ntarget_temp: 75\nforce_dev_init: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyACM1"}, cfg.DevicePaths)
	assert.Equal(t, byte(75), cfg.TargetTemp)
	assert.True(t, cfg.ForceDevInit)
	// untouched default survives the partial override
	assert.Equal(t, byte(85), cfg.CutoffTemp)
}

func TestToDeviceConfigProjection(t *testing.T) {
	cfg := Defaults()
	cfg.ForceDevInit = true
	dc := cfg.ToDeviceConfig()
	assert.Equal(t, cfg.TargetTemp, dc.TargetTemp)
	assert.True(t, dc.ForceDevInit)
}
