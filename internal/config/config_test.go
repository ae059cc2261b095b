package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "downloads", cfg.DownloadsDir)
	assert.Equal(t, "frames", cfg.FramesDir)
	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "questions/verified", cfg.QuestionsDir)
	assert.Equal(t, "questions/full_questions.json", cfg.MergedFile)
	assert.Equal(t, "ffmpeg", cfg.MediaBackend)
	assert.Equal(t, "tesseract", cfg.OCRBackend)
	assert.Empty(t, cfg.LedgerPath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HARVEST_INTERVAL", "4")
	t.Setenv("HARVEST_WORKERS", "8")
	t.Setenv("HARVEST_LEDGER", "/tmp/ledger.db")
	t.Setenv("OCR_BACKEND", "vision")
	t.Setenv("GOOGLE_VISION_ALLOWED_HOSTS", "vision.googleapis.com,proxy.internal")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Interval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/tmp/ledger.db", cfg.LedgerPath)
	assert.Equal(t, "vision", cfg.OCRBackend)
	assert.Equal(t, []string{"vision.googleapis.com", "proxy.internal"}, cfg.VisionAllowedHosts)
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("HARVEST_INTERVAL", "ten")
	_, err := Load()
	assert.Error(t, err)
}
