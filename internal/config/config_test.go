package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "intelliscan.db", cfg.Store.Path)
	assert.Equal(t, "gosseract", cfg.OCR.Provider)
	assert.Equal(t, "tesseract", cfg.OCR.TesseractPath)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, "pdftoppm", cfg.PDF.PdfToPpmPath)
	assert.Equal(t, 200, cfg.PDF.DPI)
	assert.Equal(t, int64(16*1024*1024), cfg.Process.MaxFileSizeBytes)
	assert.Equal(t, []string{"png", "jpeg", "pdf", "tiff", "bmp"}, cfg.Process.AcceptedFormats)
	assert.Equal(t, 4, cfg.Process.PageWorkers)
	assert.Equal(t, 120, cfg.Process.TimeoutSecs)
	assert.Equal(t, 0, cfg.Process.EngineRetries)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 5.0, cfg.Server.UploadRatePerSec, 0.001)
	assert.Equal(t, 10, cfg.Server.UploadBurst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtmp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/intelliscan
ocr:
  provider: cli
process:
  page_workers: 8
  timeout_secs: 30
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/intelliscan", cfg.Store.DatabaseURL)
	assert.Equal(t, "cli", cfg.OCR.Provider)
	assert.Equal(t, 8, cfg.Process.PageWorkers)
	assert.Equal(t, 30, cfg.Process.TimeoutSecs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 200, cfg.PDF.DPI)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtmp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	t.Setenv("INTELLISCAN_STORE_DRIVER", "postgres")
	t.Setenv("INTELLISCAN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtmp(t)

	t.Setenv("INTELLISCAN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestAcceptsFormat(t *testing.T) {
	cfg := ProcessConfig{AcceptedFormats: []string{"png", "jpeg", "pdf", "tiff", "bmp"}}

	assert.True(t, cfg.AcceptsFormat("png"))
	assert.True(t, cfg.AcceptsFormat("PNG"))
	assert.True(t, cfg.AcceptsFormat("jpg"))
	assert.True(t, cfg.AcceptsFormat("jpeg"))
	assert.True(t, cfg.AcceptsFormat("tif"))
	assert.True(t, cfg.AcceptsFormat("tiff"))
	assert.False(t, cfg.AcceptsFormat("exe"))
	assert.False(t, cfg.AcceptsFormat("gif"))
	assert.False(t, cfg.AcceptsFormat(""))
}

func TestAcceptsFormatAliasInConfig(t *testing.T) {
	cfg := ProcessConfig{AcceptedFormats: []string{"jpg", "tif"}}

	assert.True(t, cfg.AcceptsFormat("jpeg"))
	assert.True(t, cfg.AcceptsFormat("tiff"))
	assert.False(t, cfg.AcceptsFormat("png"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
