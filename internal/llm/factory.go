package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/instaweb/internal/model"
)

// NewProvider creates a new completion provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "groq", "":
		return NewGroqProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: groq, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:    modelConfig.Provider,
		Model:       modelConfig.Model,
		APIKey:      modelConfig.APIKey,
		BaseURL:     modelConfig.BaseURL,
		Timeout:     modelConfig.Timeout,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		HTTPProxy:   modelConfig.HTTPProxy,
		HTTPSProxy:  modelConfig.HTTPSProxy,
		NoProxy:     modelConfig.NoProxy,
	}
}

// APIKeyEnv returns the environment variable holding the key for a provider
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	case "ollama":
		return ""
	default:
		return "GROQ_API_KEY"
	}
}

// ApplyEnv fills the API key and Ollama base URL from the environment when unset
func ApplyEnv(config Config) Config {
	if config.APIKey == "" {
		if env := APIKeyEnv(config.Provider); env != "" {
			config.APIKey = os.Getenv(env)
		}
	}
	if strings.EqualFold(config.Provider, "ollama") && config.BaseURL == "" {
		config.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return config
}
