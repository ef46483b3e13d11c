package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/util"
	"github.com/sashabaranov/go-openai"
)

const (
	// GroqBaseURL is Groq's OpenAI-compatible endpoint
	GroqBaseURL = "https://api.groq.com/openai/v1"

	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultOpenAIModel = openai.GPT4oMini
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible chat APIs
// (OpenAI itself and Groq)
type OpenAIProvider struct {
	name         string
	defaultModel string
	client       *openai.Client
	config       Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai", config, "", DefaultOpenAIModel)
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible API
func NewGroqProvider(config Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("groq", config, GroqBaseURL, DefaultGroqModel)
}

func newOpenAICompatible(name string, config Config, defaultBaseURL, defaultModel string) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required: %w", name, model.ErrMissingCredentials)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	switch {
	case config.BaseURL != "":
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	case defaultBaseURL != "":
		clientConfig.BaseURL = defaultBaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenAIProvider{
		name:         name,
		defaultModel: defaultModel,
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s API check failed: %v\n", p.name, err)
		return false
	}
	return true
}

// Complete runs a chat completion with a system and a user message
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	// Determine model
	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = p.defaultModel
	}

	// Create timeout context
	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   p.config.maxTokens(req),
		Temperature: p.config.temperature(req),
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, classifyError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s: %w", p.name, model.ErrUpstream)
	}

	return &CompletionResponse{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
