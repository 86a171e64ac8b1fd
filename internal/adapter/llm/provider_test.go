package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-pipeline/internal/config"
)

func TestNewModel(t *testing.T) {
	base := config.InferenceConfig{
		Provider:       ProviderOllama,
		ServerURL:      "http://localhost:11434",
		HuggingFaceURL: "https://api-inference.huggingface.co",
		Timeout:        30 * time.Second,
	}

	tests := []struct {
		name    string
		inf     func(config.InferenceConfig) config.InferenceConfig
		mc      config.ModelConfig
		wantErr string
	}{
		{
			name: "ollama default provider",
			mc:   config.ModelConfig{Model: "quiz-t5"},
		},
		{
			name: "openai per model override",
			inf: func(c config.InferenceConfig) config.InferenceConfig {
				c.APIKey = "sk-test"
				return c
			},
			mc: config.ModelConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
		},
		{
			name: "huggingface",
			inf: func(c config.InferenceConfig) config.InferenceConfig {
				c.HuggingFaceKey = "hf_test"
				return c
			},
			mc: config.ModelConfig{Provider: ProviderHuggingFace, Model: "Helsinki-NLP/opus-mt-mul-en"},
		},
		{
			name:    "missing model name",
			mc:      config.ModelConfig{},
			wantErr: "model name cannot be empty",
		},
		{
			name:    "openai without key",
			mc:      config.ModelConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
			wantErr: "API key cannot be empty",
		},
		{
			name:    "huggingface without token",
			mc:      config.ModelConfig{Provider: ProviderHuggingFace, Model: "t5"},
			wantErr: "token cannot be empty",
		},
		{
			name:    "unknown provider",
			mc:      config.ModelConfig{Provider: "bedrock", Model: "x"},
			wantErr: "unsupported inference provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inf := base
			if tt.inf != nil {
				inf = tt.inf(base)
			}
			model, err := NewModel(inf, tt.mc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, model)
		})
	}
}
