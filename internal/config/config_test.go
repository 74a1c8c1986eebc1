package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ARCHINDEX_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, int64(52428800), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.MaxBatchFiles)
	assert.Equal(t, 50, cfg.MaxReportFiles)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, "ru", cfg.OCRLanguage)
	assert.Equal(t, "printed", cfg.OCRModel)
	assert.True(t, cfg.PDFFallbackPdftotext)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ARCHINDEX_CONFIG", "")
	t.Setenv("ARCHINDEX_PORT", "9000")
	t.Setenv("ARCHINDEX_API_KEY", "secret")
	t.Setenv("ARCHINDEX_WORKER_COUNT", "8")
	t.Setenv("ARCHINDEX_JOB_TTL", "2h")
	t.Setenv("ARCHINDEX_UPLOAD_RATE", "2.5")
	t.Setenv("ARCHINDEX_PDF_FALLBACK_PDFTOTEXT", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 2*time.Hour, cfg.JobTTL)
	assert.InDelta(t, 2.5, cfg.UploadRate, 1e-9)
	assert.False(t, cfg.PDFFallbackPdftotext)
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	t.Setenv("ARCHINDEX_CONFIG", "")
	t.Setenv("ARCHINDEX_WORKER_COUNT", "0")
	t.Setenv("ARCHINDEX_MAX_REPORT_FILES", "-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 50, cfg.MaxReportFiles)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\ndata_dir: /srv/archive\nmax_queue_size: 7\n"), 0o644))
	t.Setenv("ARCHINDEX_CONFIG", path)
	t.Setenv("ARCHINDEX_MAX_QUEUE_SIZE", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/srv/archive", cfg.DataDir)
	// env wins over the file
	assert.Equal(t, 12, cfg.MaxQueueSize)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ARCHINDEX_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{APIKey: "k", DataDir: "data"}
	assert.NoError(t, cfg.Validate())

	assert.Error(t, Config{DataDir: "data"}.Validate())
	assert.Error(t, Config{APIKey: "k"}.Validate())
	assert.Error(t, Config{APIKey: "k", DataDir: "data", OCREndpoint: "http://ocr"}.Validate())
}
