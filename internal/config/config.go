// Package config loads server settings from ARCHINDEX_* environment
// variables and an optional YAML file named by ARCHINDEX_CONFIG.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port"`

	// Auth
	APIKey string `mapstructure:"api_key"`

	// Storage
	DataDir      string `mapstructure:"data_dir"`
	PatternsFile string `mapstructure:"patterns_file"`

	// Worker pool
	WorkerCount  int `mapstructure:"worker_count"`
	MaxQueueSize int `mapstructure:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
	MaxBatchFiles  int     `mapstructure:"max_batch_files"`
	UploadRate     float64 `mapstructure:"upload_rate"`
	UploadBurst    int     `mapstructure:"upload_burst"`

	// Reports
	MaxReportFiles    int `mapstructure:"max_report_files"`
	ReportConcurrency int `mapstructure:"report_concurrency"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl"`

	// Stats
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl"`
	LatencyWindow time.Duration `mapstructure:"latency_window"`

	// Recognition
	OCRLanguage string        `mapstructure:"ocr_language"`
	OCRModel    string        `mapstructure:"ocr_model"`
	OCREndpoint string        `mapstructure:"ocr_endpoint"`
	OCRAPIKey   string        `mapstructure:"ocr_api_key"`
	OCRTimeout  time.Duration `mapstructure:"ocr_timeout"`

	// PDF
	PDFFallbackPdftotext bool `mapstructure:"pdf_fallback_pdftotext"`
}

var defaults = map[string]any{
	"port":                   "8090",
	"data_dir":               "data",
	"patterns_file":          "",
	"worker_count":           4,
	"max_queue_size":         100,
	"max_upload_bytes":       int64(52428800), // 50MB
	"max_batch_files":        10,
	"upload_rate":            5.0,
	"upload_burst":           10,
	"max_report_files":       50,
	"report_concurrency":     4,
	"job_ttl":                time.Hour,
	"stats_cache_ttl":        30 * time.Second,
	"latency_window":         time.Hour,
	"ocr_language":           "ru",
	"ocr_model":              "printed",
	"ocr_endpoint":           "",
	"ocr_api_key":            "",
	"ocr_timeout":            60 * time.Second,
	"pdf_fallback_pdftotext": true,
	"api_key":                "",
}

// Load reads defaults, then the file named by ARCHINDEX_CONFIG if set, then
// ARCHINDEX_* environment variables. Non-positive numeric settings fall
// back to their defaults.
func Load() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("ARCHINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("ARCHINDEX_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800
	}
	if c.MaxBatchFiles <= 0 {
		c.MaxBatchFiles = 10
	}
	if c.UploadRate <= 0 {
		c.UploadRate = 5
	}
	if c.UploadBurst <= 0 {
		c.UploadBurst = 10
	}
	if c.MaxReportFiles <= 0 {
		c.MaxReportFiles = 50
	}
	if c.ReportConcurrency <= 0 {
		c.ReportConcurrency = 4
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.StatsCacheTTL <= 0 {
		c.StatsCacheTTL = 30 * time.Second
	}
	if c.LatencyWindow <= 0 {
		c.LatencyWindow = time.Hour
	}
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = 60 * time.Second
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ARCHINDEX_API_KEY is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("ARCHINDEX_DATA_DIR must not be empty")
	}
	if c.OCREndpoint != "" && c.OCRAPIKey == "" {
		return fmt.Errorf("ARCHINDEX_OCR_API_KEY is required when ARCHINDEX_OCR_ENDPOINT is set")
	}
	return nil
}
