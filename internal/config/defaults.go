package config

// ModelPreset describes the default models for a provider.
type ModelPreset struct {
	Model          string
	EmbeddingModel string
}

// modelPresets maps each provider to its default model choices.
var modelPresets = map[ProviderType]ModelPreset{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             "claude-sonnet-4-5-20250929",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DatabasePath:      "addestra.db",
		MemoryDir:         ".addestra-memory",
		MaxTokens:         2048,
		RequestsPerMinute: 30,
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8420,
			AllowedOrigins: []string{"*"},
		},
	}
}

// GetPreset returns the default models for the given provider, falling
// back to the Anthropic preset for unknown values.
func GetPreset(provider ProviderType) ModelPreset {
	if preset, ok := modelPresets[provider]; ok {
		return preset
	}
	return modelPresets[ProviderAnthropic]
}
