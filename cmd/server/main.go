// ABOUTME: Flag-free HTTP entrypoint for container deployments
// ABOUTME: Configures everything from the environment and serves the chat API
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ummati/ummati/internal/config"
	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/index"
	"github.com/ummati/ummati/internal/llm"
	"github.com/ummati/ummati/internal/server"
)

func main() {
	// Load .env files if they exist (for API keys)
	for _, path := range config.LoadEnvFiles() {
		log.Printf("Loaded %s", path)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireOpenAI(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientCfg := llm.DefaultConfig(cfg.OpenAIKey)
	clientCfg.BaseURL = cfg.OpenAIBaseURL
	clientCfg.ChatModel = cfg.ChatModel
	clientCfg.EmbeddingModel = cfg.EmbeddingModel
	client, err := llm.NewOpenAIClientWithConfig(clientCfg)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}

	idx, err := index.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s index: %v", cfg.IndexBackend, err)
	}
	defer idx.Close()

	pipeline := core.NewPipeline(client, idx, client, core.Options{
		MinScore:          cfg.MinScore,
		EmbedTimeout:      cfg.EmbedTimeout,
		RetrieveTimeout:   cfg.RetrieveTimeout,
		StreamOpenTimeout: cfg.StreamOpenTimeout,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
	})

	log.Printf("Using %s index, namespace %s", cfg.IndexBackend, cfg.PineconeNamespace)
	if err := server.NewServer(pipeline, cfg.Addr).Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
