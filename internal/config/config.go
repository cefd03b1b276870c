// Package config provides the configuration structure for the aligner
// corpus builder.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// CorpusConfig holds the construction parameters for one dataset.
type CorpusConfig struct {
	Language            string  `toml:"language"`
	Workers             int     `toml:"workers"`
	Device              string  `toml:"device"`
	MinSeconds          float64 `toml:"min_seconds"`
	MaxSeconds          float64 `toml:"max_seconds"`
	ExpectedSampleRate  int     `toml:"expected_sample_rate"`
	RebuildCache        bool    `toml:"rebuild_cache"`
	Verbose             bool    `toml:"verbose"`
	PhoneInput          bool    `toml:"phone_input"`
	AllowUnknownSymbols bool    `toml:"allow_unknown_symbols"`
}

// FrontendConfig locates the text frontend's symbol inventory.
type FrontendConfig struct {
	InventoryPath string `toml:"inventory_path"`
}

// ModelConfig locates an external model binary and its weights.
type ModelConfig struct {
	BinaryPath string `toml:"binary_path"`
	ModelPath  string `toml:"model_path"`
}

// NATSConfig holds the optional cache-mirror settings. An empty URL disables
// mirroring.
type NATSConfig struct {
	URL                    string `toml:"url"`
	CacheObjectStoreBucket string `toml:"cache_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	CacheDir        string `toml:"cache_dir"`
	TranscriptsFile string `toml:"transcripts_file"`
	BaseLogsDir     string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Corpus    CorpusConfig   `toml:"corpus"`
	Frontend  FrontendConfig `toml:"frontend"`
	Codec     ModelConfig    `toml:"codec"`
	Embedding ModelConfig    `toml:"embedding"`
	NATS      NATSConfig     `toml:"nats"`
	Paths     PathsConfig    `toml:"paths"`
}

// Load loads the configuration for the corpus builder.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
