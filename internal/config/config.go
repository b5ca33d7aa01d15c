package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr          string
	UpstreamBaseURL     string
	UpstreamAPIKey      string
	TranscriptionModel  string
	CompletionModel     string
	RequestTimeout      time.Duration
	CapabilityTimeout   time.Duration
	MaxUploadBytes      int64
	LogLevel            string
	ChunkThresholdWords int
	MaxWordsPerChunk    int
	ExtractConcurrency  int
	CapabilityAttempts  int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
}

type envConfig struct {
	ListenAddr                string `env:"LISTEN_ADDR" envDefault:":8080"`
	UpstreamBaseURL           string `env:"UPSTREAM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	UpstreamAPIKey            string `env:"UPSTREAM_API_KEY"`
	TranscriptionModel        string `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	CompletionModel           string `env:"COMPLETION_MODEL" envDefault:"gpt-4o-mini"`
	RequestTimeoutSeconds     int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"120"`
	CapabilityTimeoutSeconds  int    `env:"CAPABILITY_TIMEOUT_SECONDS" envDefault:"90"`
	MaxUploadBytes            int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	LogLevel                  string `env:"LOG_LEVEL" envDefault:"info"`
	ChunkThresholdWords       int    `env:"CHUNK_THRESHOLD_WORDS" envDefault:"4000"`
	MaxWordsPerChunk          int    `env:"MAX_WORDS_PER_CHUNK" envDefault:"3000"`
	ExtractConcurrency        int    `env:"EXTRACT_CONCURRENCY" envDefault:"2"`
	CapabilityAttempts        int    `env:"CAPABILITY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialBackoffMillis int    `env:"RETRY_INITIAL_BACKOFF_MS" envDefault:"1000"`
	RetryMaxBackoffMillis     int    `env:"RETRY_MAX_BACKOFF_MS" envDefault:"30000"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:          strings.TrimSpace(raw.ListenAddr),
		UpstreamBaseURL:     strings.TrimRight(strings.TrimSpace(raw.UpstreamBaseURL), "/"),
		UpstreamAPIKey:      strings.TrimSpace(raw.UpstreamAPIKey),
		TranscriptionModel:  strings.TrimSpace(raw.TranscriptionModel),
		CompletionModel:     strings.TrimSpace(raw.CompletionModel),
		RequestTimeout:      time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		CapabilityTimeout:   time.Duration(raw.CapabilityTimeoutSeconds) * time.Second,
		MaxUploadBytes:      raw.MaxUploadBytes,
		LogLevel:            strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		ChunkThresholdWords: raw.ChunkThresholdWords,
		MaxWordsPerChunk:    raw.MaxWordsPerChunk,
		ExtractConcurrency:  raw.ExtractConcurrency,
		CapabilityAttempts:  raw.CapabilityAttempts,
		RetryInitialBackoff: time.Duration(raw.RetryInitialBackoffMillis) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(raw.RetryMaxBackoffMillis) * time.Millisecond,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.UpstreamBaseURL == "" {
		return errors.New("UPSTREAM_BASE_URL must not be empty")
	}
	if c.TranscriptionModel == "" {
		return errors.New("TRANSCRIPTION_MODEL must not be empty")
	}
	if c.CompletionModel == "" {
		return errors.New("COMPLETION_MODEL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.CapabilityTimeout <= 0 {
		return errors.New("CAPABILITY_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.ChunkThresholdWords <= 0 {
		return errors.New("CHUNK_THRESHOLD_WORDS must be > 0")
	}
	if c.MaxWordsPerChunk <= 0 {
		return errors.New("MAX_WORDS_PER_CHUNK must be > 0")
	}
	if c.ExtractConcurrency <= 0 {
		return errors.New("EXTRACT_CONCURRENCY must be > 0")
	}
	if c.CapabilityAttempts <= 0 {
		return errors.New("CAPABILITY_MAX_ATTEMPTS must be > 0")
	}
	if c.RetryInitialBackoff <= 0 || c.RetryMaxBackoff <= 0 {
		return errors.New("retry backoff intervals must be > 0")
	}
	return nil
}
