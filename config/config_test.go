package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "HTTP_ADDR", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_ENDPOINT",
		"GEMINI_TIMEOUT", "EXPORT_DIR", "DEFAULT_BRUSH_RADIUS", "MAX_IMAGE_BYTES",
		"MAX_IMAGE_PIXELS", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	require.Equal(t, 60*time.Second, cfg.GeminiTimeout)
	require.Equal(t, 5.0, cfg.DefaultBrushRadius)
	require.Equal(t, int64(20<<20), cfg.MaxImageBytes)
	require.False(t, cfg.AIEnabled())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_TIMEOUT", "15s")
	t.Setenv("DEFAULT_BRUSH_RADIUS", "8")
	t.Setenv("EXPORT_DIR", "/tmp/exports")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.TelegramToken)
	require.True(t, cfg.AIEnabled())
	require.Equal(t, 15*time.Second, cfg.GeminiTimeout)
	require.Equal(t, 8.0, cfg.DefaultBrushRadius)
	require.Equal(t, "/tmp/exports", cfg.ExportDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "trichoscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7000\"\ngemini_model: gemini-2.0-pro\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GEMINI_MODEL", "gemini-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.HTTPAddr)
	require.Equal(t, "gemini-env", cfg.GeminiModel)
}

func TestLoad_Validation(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.ErrorContains(t, err, "TELEGRAM_TOKEN or HTTP_ADDR")

	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("DEFAULT_BRUSH_RADIUS", "50")
	_, err = Load()
	require.ErrorContains(t, err, "DEFAULT_BRUSH_RADIUS")

	t.Setenv("DEFAULT_BRUSH_RADIUS", "5")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	require.Error(t, err)
}
