package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel records every prompt and answers from a reply function
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	options []llms.CallOptions
	reply   func(prompt string) (string, error)
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	prompt := ""
	if len(messages) > 0 {
		for _, part := range messages[0].Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, opts)
	f.mu.Unlock()

	if f.reply == nil {
		return nil, errors.New("no reply configured")
	}
	out, err := f.reply(prompt)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func replyWith(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}
