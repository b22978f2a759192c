package models

// APIConfig configures the marketplace REST client.
type APIConfig struct {
	BaseURL    string `json:"baseUrl"`
	TimeoutSec int    `json:"timeoutSec"`
}

// RealtimeConfig configures the websocket channel.
type RealtimeConfig struct {
	URL string `json:"url"`
}

// MediaSizeLimits holds the per-bucket upload caps in megabytes.
type MediaSizeLimits struct {
	Image    int `json:"image"`
	Video    int `json:"video"`
	Document int `json:"document"`
}

// UploadConfig configures the media upload pipeline.
type UploadConfig struct {
	Endpoint       string          `json:"endpoint"`
	ChunkSizeBytes int64           `json:"chunkSizeBytes"`
	TimeoutSec     int             `json:"timeoutSec"`
	MaxSizeMB      MediaSizeLimits `json:"maxSizeMB"`
}

// StoreConfig configures the local UI-state store.
type StoreConfig struct {
	Path string `json:"path"`
}

// AudioConfig configures voice capture. CapturePath is the file or FIFO
// the platform recorder writes raw PCM frames to.
type AudioConfig struct {
	CapturePath string `json:"capturePath"`
	SampleRate  int    `json:"sampleRate"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

// Config is the whole client configuration, loaded from a JSON file with
// environment overrides applied afterwards.
type Config struct {
	API      APIConfig      `json:"api"`
	Realtime RealtimeConfig `json:"realtime"`
	Upload   UploadConfig   `json:"upload"`
	Store    StoreConfig    `json:"store"`
	Audio    AudioConfig    `json:"audio"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"logLevel"`
	LogFile  string         `json:"logFile"`
}

// ConfigError indicates an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
