// Package config provides configuration loading for extractd.
package config

import (
	"fmt"
	"time"

	"github.com/arborfin/extractd/internal/extraction"
	"github.com/arborfin/extractd/internal/telemetry"
)

// Config is the full extractd configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Fallback   FallbackConfig   `koanf:"fallback"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Knowledge  KnowledgeConfig  `koanf:"knowledge"`
	Cache      CacheConfig      `koanf:"cache"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  telemetry.Config `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ExtractionConfig tunes the extraction engine and retrieval.
type ExtractionConfig struct {
	EnableFallback      bool                   `koanf:"enable_fallback"`
	SimilarityThreshold float64                `koanf:"similarity_threshold"`
	TopK                int                    `koanf:"top_k"`
	MaxChunkChars       int                    `koanf:"max_chunk_chars"`
	CoverageBaseline    float64                `koanf:"coverage_baseline"`
	WorkerLimit         int                    `koanf:"worker_limit"`
	BoostTiers          []extraction.BoostTier `koanf:"boost_tiers"`
}

// FallbackConfig configures the generative completion client.
type FallbackConfig struct {
	BaseURL    string   `koanf:"base_url"`
	Model      string   `koanf:"model"`
	APIKey     Secret   `koanf:"api_key"`
	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`
}

// EmbeddingConfig configures the embedding collaborator.
type EmbeddingConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
}

// KnowledgeConfig configures the domain knowledge base.
type KnowledgeConfig struct {
	// Path is a markdown file loaded at startup. Empty disables the
	// knowledge base.
	Path                string  `koanf:"path"`
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	TopK                int     `koanf:"top_k"`
}

// CacheConfig configures the parsed-document disk cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults fills unset values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8750
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Extraction.TopK == 0 {
		cfg.Extraction.TopK = 3
	}
	if cfg.Extraction.MaxChunkChars == 0 {
		cfg.Extraction.MaxChunkChars = 1500
	}
	if cfg.Extraction.CoverageBaseline == 0 {
		cfg.Extraction.CoverageBaseline = extraction.DefaultCoverageBaseline
	}
	if cfg.Extraction.WorkerLimit == 0 {
		cfg.Extraction.WorkerLimit = 8
	}
	if len(cfg.Extraction.BoostTiers) == 0 {
		cfg.Extraction.BoostTiers = extraction.DefaultBoostTiers()
	}

	if cfg.Fallback.Timeout == 0 {
		cfg.Fallback.Timeout = Duration(30 * time.Second)
	}
	if cfg.Fallback.MaxRetries == 0 {
		cfg.Fallback.MaxRetries = 3
	}

	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(30 * time.Second)
	}

	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 2
	}
	if cfg.Knowledge.SimilarityThreshold == 0 {
		cfg.Knowledge.SimilarityThreshold = 0.3
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	cfg.Telemetry.ApplyDefaults()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside [1,65535]", c.Server.Port)
	}

	if c.Extraction.SimilarityThreshold < -1 || c.Extraction.SimilarityThreshold > 1 {
		return fmt.Errorf("extraction.similarity_threshold %.2f outside [-1,1]", c.Extraction.SimilarityThreshold)
	}
	if c.Extraction.TopK <= 0 {
		return fmt.Errorf("extraction.top_k must be positive, got %d", c.Extraction.TopK)
	}
	if c.Extraction.WorkerLimit <= 0 {
		return fmt.Errorf("extraction.worker_limit must be positive, got %d", c.Extraction.WorkerLimit)
	}
	if c.Extraction.CoverageBaseline < 0 || c.Extraction.CoverageBaseline > 1 {
		return fmt.Errorf("extraction.coverage_baseline %.2f outside [0,1]", c.Extraction.CoverageBaseline)
	}
	if err := extraction.ValidateTiers(c.Extraction.BoostTiers); err != nil {
		return fmt.Errorf("extraction.boost_tiers: %w", err)
	}

	if c.Extraction.EnableFallback {
		if !c.Fallback.APIKey.IsSet() {
			return fmt.Errorf("fallback enabled but fallback.api_key is not set")
		}
		if c.Fallback.Timeout.Duration() <= 0 {
			return fmt.Errorf("fallback.timeout must be positive")
		}
	}

	if c.Knowledge.SimilarityThreshold < -1 || c.Knowledge.SimilarityThreshold > 1 {
		return fmt.Errorf("knowledge.similarity_threshold %.2f outside [-1,1]", c.Knowledge.SimilarityThreshold)
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache enabled but cache.dir is not set")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
