// Package main implements the extractd daemon: the parameter-extraction
// engine exposed over HTTP, plus a one-shot extraction mode.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/config"
	"github.com/arborfin/extractd/internal/doccache"
	"github.com/arborfin/extractd/internal/embeddings"
	"github.com/arborfin/extractd/internal/extraction"
	"github.com/arborfin/extractd/internal/knowledge"
	"github.com/arborfin/extractd/internal/logging"
	"github.com/arborfin/extractd/internal/params"
	"github.com/arborfin/extractd/internal/retrieval"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "extractd",
	Short:   "Financial parameter extraction engine",
	Long:    `extractd extracts typed, explainable financial parameters from parsed credit-bureau reports and GSTR-3B tax filings.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/extractd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
}

// components is everything the serve and extract commands share.
type components struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *extraction.Engine
	cache  *doccache.Cache
	kb     *knowledge.Base
}

// buildComponents assembles the engine from configuration. The embedder,
// knowledge base and fallback are wired only when configured; the engine
// degrades to purely deterministic extraction without them.
func buildComponents(cfg *config.Config) (*components, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	var retriever *retrieval.Coordinator
	var kb *knowledge.Base
	if cfg.Embedding.BaseURL != "" {
		embedder, err := embeddings.NewService(embeddings.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			Timeout: cfg.Embedding.Timeout.Duration(),
		})
		if err != nil {
			return nil, fmt.Errorf("build embedder: %w", err)
		}

		retriever, err = retrieval.NewCoordinator(embedder, retrieval.Config{
			SimilarityThreshold: cfg.Extraction.SimilarityThreshold,
			TopK:                cfg.Extraction.TopK,
			MaxChunkChars:       cfg.Extraction.MaxChunkChars,
		}, logger.Named("retrieval"))
		if err != nil {
			return nil, fmt.Errorf("build retriever: %w", err)
		}

		if cfg.Knowledge.Path != "" {
			kb, err = knowledge.NewBase(embedder, knowledge.Config{
				SimilarityThreshold: cfg.Knowledge.SimilarityThreshold,
				TopK:                cfg.Knowledge.TopK,
			}, logger.Named("knowledge"))
			if err != nil {
				// The knowledge base only enriches fallback prompts.
				logger.Warn("knowledge base unavailable", zap.Error(err))
				kb = nil
			}
		}
	}

	var fallback *extraction.Fallback
	if cfg.Extraction.EnableFallback && cfg.Fallback.APIKey.IsSet() {
		completer, err := extraction.NewChatCompleter(extraction.CompleterConfig{
			BaseURL:    cfg.Fallback.BaseURL,
			Model:      cfg.Fallback.Model,
			APIKey:     cfg.Fallback.APIKey.Value(),
			Timeout:    cfg.Fallback.Timeout.Duration(),
			MaxRetries: cfg.Fallback.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("build completer: %w", err)
		}
		fallback = extraction.NewFallback(completer, cfg.Fallback.Timeout.Duration(), logger.Named("fallback"))
	}

	engine, err := extraction.NewEngine(extraction.Config{
		EnableFallback:   cfg.Extraction.EnableFallback,
		WorkerLimit:      cfg.Extraction.WorkerLimit,
		FallbackTimeout:  cfg.Fallback.Timeout.Duration(),
		CoverageBaseline: cfg.Extraction.CoverageBaseline,
		BoostTiers:       cfg.Extraction.BoostTiers,
	}, params.NewBureauRegistry(), retriever, kb, fallback, logger.Named("engine"))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	cacheDir := ""
	if cfg.Cache.Enabled {
		cacheDir = cfg.Cache.Dir
	}
	cache, err := doccache.New(cacheDir, logger.Named("doccache"))
	if err != nil {
		return nil, fmt.Errorf("build document cache: %w", err)
	}

	return &components{cfg: cfg, logger: logger, engine: engine, cache: cache, kb: kb}, nil
}
