package llm

import (
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// NewProvider builds the completion provider the trainer talks to. Cloud
// providers ("anthropic", "openai") read their API key from the environment
// and fail fast when it is missing, so a misconfigured deployment is caught
// at startup rather than on the first training turn. "ollama" needs no key
// and falls back to the local default host.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey, err := requiredEnv("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey, err := requiredEnv("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

func requiredEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is not set", name)
	}
	return v, nil
}
