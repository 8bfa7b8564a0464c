package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level addestra configuration, corresponding to .addestra.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DatabasePath      string       `yaml:"database_path" koanf:"database_path"`
	MemoryDir         string       `yaml:"memory_dir" koanf:"memory_dir"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
