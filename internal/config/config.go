package config

import (
	"encoding/json"
	"os"
	"strconv"

	"gigchat/internal/constants"
	"gigchat/internal/models"
)

var (
	ErrMissingAPIURL      = models.ConfigError{Message: "missing marketplace API base URL"}
	ErrMissingRealtimeURL = models.ConfigError{Message: "missing realtime channel URL"}
	ErrMissingUploadURL   = models.ConfigError{Message: "missing media upload endpoint"}
	ErrMissingStorePath   = models.ConfigError{Message: "missing local store path"}
)

// LoadConfig reads the JSON configuration file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path) // #nosec G304 - path comes from the -config flag
	if err != nil {
		return nil, err
	}

	var cfg models.Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(c *models.Config) error {
	if c.API.BaseURL == "" {
		return ErrMissingAPIURL
	}
	if c.Realtime.URL == "" {
		return ErrMissingRealtimeURL
	}
	if c.Upload.Endpoint == "" {
		return ErrMissingUploadURL
	}
	if c.Store.Path == "" {
		return ErrMissingStorePath
	}

	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Upload.TimeoutSec <= 0 {
		c.Upload.TimeoutSec = constants.DefaultUploadTimeoutSec
	}
	if c.Upload.ChunkSizeBytes <= 0 {
		c.Upload.ChunkSizeBytes = constants.DefaultChunkSizeBytes
	}

	// Per-bucket upload caps
	if c.Upload.MaxSizeMB.Image <= 0 {
		c.Upload.MaxSizeMB.Image = constants.DefaultMaxImageSizeMB
	}
	if c.Upload.MaxSizeMB.Video <= 0 {
		c.Upload.MaxSizeMB.Video = constants.DefaultMaxVideoSizeMB
	}
	if c.Upload.MaxSizeMB.Document <= 0 {
		c.Upload.MaxSizeMB.Document = constants.DefaultMaxDocumentSizeMB
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "gigchat"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 0.1
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("GIGCHAT_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if url := os.Getenv("GIGCHAT_REALTIME_URL"); url != "" {
		c.Realtime.URL = url
	}
	if url := os.Getenv("GIGCHAT_UPLOAD_URL"); url != "" {
		c.Upload.Endpoint = url
	}
	if path := os.Getenv("GIGCHAT_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("GIGCHAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if v := os.Getenv("GIGCHAT_TRACING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Tracing.Enabled = enabled
		}
	}
}
