// ABOUTME: Shared wiring for commands that talk to the upstream services
// ABOUTME: Loads configuration and assembles the pipeline from it
package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/ummati/ummati/internal/config"
	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/index"
	"github.com/ummati/ummati/internal/llm"
)

// loadConfig reads .env files and the environment
func loadConfig() (*config.Config, error) {
	loaded := config.LoadEnvFiles()
	if verbose {
		for _, path := range loaded {
			log.Printf("Loaded %s", path)
		}
	}

	return config.Load()
}

// newOpenAIClient builds the OpenAI client from cfg
func newOpenAIClient(cfg *config.Config) (*llm.OpenAIClient, error) {
	if err := cfg.RequireOpenAI(); err != nil {
		return nil, err
	}
	clientCfg := llm.DefaultConfig(cfg.OpenAIKey)
	clientCfg.BaseURL = cfg.OpenAIBaseURL
	clientCfg.ChatModel = cfg.ChatModel
	clientCfg.EmbeddingModel = cfg.EmbeddingModel
	clientCfg.MaxRetries = cfg.IngestMaxRetries
	clientCfg.RetryDelay = cfg.IngestRetryDelay
	return llm.NewOpenAIClientWithConfig(clientCfg)
}

// buildPipeline connects to OpenAI and the configured index. The caller
// closes the returned index.
func buildPipeline(ctx context.Context, cfg *config.Config) (*core.Pipeline, index.Index, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	idx, err := index.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s index: %w", cfg.IndexBackend, err)
	}

	opts := core.Options{
		MinScore:          cfg.MinScore,
		EmbedTimeout:      cfg.EmbedTimeout,
		RetrieveTimeout:   cfg.RetrieveTimeout,
		StreamOpenTimeout: cfg.StreamOpenTimeout,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
	}
	if verbose {
		opts.Observer = logTransitions
	}

	if verbose {
		log.Printf("Using %s index (namespace %s), chat model %s", cfg.IndexBackend, cfg.PineconeNamespace, client.ChatModel())
	}
	return core.NewPipeline(client, idx, client, opts), idx, nil
}

// logTransitions is the verbose pipeline observer
func logTransitions(state core.State, err error) {
	if err != nil {
		log.Printf("Pipeline %s: %v", state, err)
		return
	}
	log.Printf("Pipeline %s", state)
}
