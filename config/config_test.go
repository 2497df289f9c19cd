package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "./example/assetLabel.pdf", cfg.Output.PDFPath)
	assert.Equal(t, "./example/assetLabel.png", cfg.Output.PNGPath)
	assert.Equal(t, 4.0, cfg.Output.RasterScale)
	assert.Equal(t, "_PM_241_BT", cfg.Printer.Name)
	assert.Equal(t, "PDF", cfg.Printer.ContentType)
	assert.Equal(t, 30*time.Second, cfg.Printer.Timeout)
	assert.False(t, cfg.Label.Compress)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assettag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
label:
  compress: true
  assets_dir: /srv/assets
printer:
  name: Office
  timeout: 5s
`), 0o644))
	t.Setenv("ASSETTAG_PRINTER_NAME", "Warehouse")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.True(t, cfg.Label.Compress)
	assert.Equal(t, "/srv/assets", cfg.Label.AssetsDir)
	assert.Equal(t, "Warehouse", cfg.Printer.Name, "environment wins over file")
	assert.Equal(t, 5*time.Second, cfg.Printer.Timeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	bad := *cfg
	bad.Printer.ContentType = "DOCX"
	assert.ErrorContains(t, bad.Validate(), "ContentType")

	bad = *cfg
	bad.Printer.Transport = "device"
	bad.Printer.Device = ""
	assert.ErrorContains(t, bad.Validate(), "Device")

	bad = *cfg
	bad.Output.RasterScale = 0
	assert.ErrorContains(t, bad.Validate(), "RasterScale")

	bad = *cfg
	bad.Cache.Enabled = true
	bad.Cache.Addr = ""
	assert.ErrorContains(t, bad.Validate(), "Addr")
}
