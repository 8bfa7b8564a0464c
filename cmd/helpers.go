package cmd

import (
	"fmt"
	"os"

	"github.com/addestra-labs/addestra/internal/config"
	"github.com/addestra-labs/addestra/internal/embeddings"
	"github.com/addestra-labs/addestra/internal/llm"
	"github.com/addestra-labs/addestra/internal/memory"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `addestra init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(provider).EmbeddingModel
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		// OpenAI embeddings serve all cloud providers.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// createMemoryFromConfig builds the correction memory, loading any
// persisted index from the configured directory. Returns nil when the
// memory is disabled.
func createMemoryFromConfig(cfg *config.Config) (*memory.Store, error) {
	if cfg.MemoryDir == "" {
		return nil, nil
	}
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := memory.NewStore(embedder)
	if err != nil {
		return nil, err
	}
	if err := store.Load(cfg.MemoryDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load correction memory from %s: %v\n", cfg.MemoryDir, err)
	}
	return store, nil
}
