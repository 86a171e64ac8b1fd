package llm

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"quiz-pipeline/internal/config"
)

// Providers
const (
	ProviderOllama      = "ollama"
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
)

// NewModel builds the langchaingo model serving mc. An empty mc.Provider
// falls back to the inference-wide provider.
func NewModel(inf config.InferenceConfig, mc config.ModelConfig) (llms.Model, error) {
	provider := mc.Provider
	if provider == "" {
		provider = inf.Provider
	}
	if mc.Model == "" {
		return nil, fmt.Errorf("model name cannot be empty for provider %q", provider)
	}

	httpClient := &http.Client{Timeout: inf.Timeout}

	switch provider {
	case ProviderOllama:
		if inf.ServerURL == "" {
			return nil, fmt.Errorf("ollama server URL cannot be empty")
		}
		llm, err := ollama.New(
			ollama.WithServerURL(inf.ServerURL),
			ollama.WithModel(mc.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client for %s: %w", mc.Model, err)
		}
		return llm, nil

	case ProviderOpenAI:
		if inf.APIKey == "" {
			return nil, fmt.Errorf("openai API key cannot be empty")
		}
		opts := []openai.Option{
			openai.WithToken(inf.APIKey),
			openai.WithModel(mc.Model),
			openai.WithHTTPClient(httpClient),
		}
		if inf.ServerURL != "" && inf.Provider == ProviderOpenAI {
			opts = append(opts, openai.WithBaseURL(inf.ServerURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client for %s: %w", mc.Model, err)
		}
		return llm, nil

	case ProviderHuggingFace:
		if inf.HuggingFaceKey == "" {
			return nil, fmt.Errorf("huggingface token cannot be empty")
		}
		opts := []huggingface.Option{
			huggingface.WithToken(inf.HuggingFaceKey),
			huggingface.WithModel(mc.Model),
		}
		if inf.HuggingFaceURL != "" {
			opts = append(opts, huggingface.WithURL(inf.HuggingFaceURL))
		}
		llm, err := huggingface.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create huggingface client for %s: %w", mc.Model, err)
		}
		return llm, nil
	}

	return nil, fmt.Errorf("unsupported inference provider %q", provider)
}
