// Package llm adapts langchaingo models to the pipeline's inference ports.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"quiz-pipeline/internal/adapter/tokenizer"
)

// Prompt styles
const (
	PromptStyleSeq2Seq  = "seq2seq"
	PromptStyleInstruct = "instruct"
)

// GenerationParams are the decoding settings of one generation call.
// NumBeams, LengthPenalty and EarlyStopping are passed as call metadata;
// backends that only sample ignore them and rely on zero temperature.
type GenerationParams struct {
	MaxNewTokens  int
	NumBeams      int
	LengthPenalty float64
	EarlyStopping bool
}

// Seq2SeqClient sends a single text input to a model and returns the
// decoded output text.
type Seq2SeqClient struct {
	model     llms.Model
	name      string
	seed      int
	timeout   time.Duration
	tokenizer tokenizer.Tokenizer
	logger    *zap.Logger
}

// ClientOptions configures a Seq2SeqClient
type ClientOptions struct {
	Name      string
	Seed      int
	Timeout   time.Duration
	Tokenizer tokenizer.Tokenizer
}

func NewSeq2SeqClient(model llms.Model, opts ClientOptions, logger *zap.Logger) (*Seq2SeqClient, error) {
	if model == nil {
		return nil, errors.New("llm model cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tok := opts.Tokenizer
	if tok == nil {
		tok = tokenizer.WhitespaceTokenizer{}
	}
	return &Seq2SeqClient{
		model:     model,
		name:      opts.Name,
		seed:      opts.Seed,
		timeout:   opts.Timeout,
		tokenizer: tok,
		logger:    logger.With(zap.String("model", opts.Name)),
	}, nil
}

// Truncate bounds text to maxTokens using the client's tokenizer
func (c *Seq2SeqClient) Truncate(text string, maxTokens int) string {
	return c.tokenizer.Truncate(text, maxTokens)
}

// Generate runs one deterministic generation call
func (c *Seq2SeqClient) Generate(ctx context.Context, input string, params GenerationParams) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := llms.GenerateFromSinglePrompt(ctx, c.model, input, c.callOptions(params)...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("LLM request timed out", zap.Error(err))
			return "", fmt.Errorf("%s request timed out: %w", c.name, err)
		}
		c.logger.Error("Failed to get response from LLM", zap.Error(err))
		return "", fmt.Errorf("%s generation failed: %w", c.name, err)
	}

	cleaned := stripThinkBlocks(output)
	c.logger.Debug("LLM generation finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("input_chars", len(input)),
		zap.Int("output_chars", len(cleaned)))
	return cleaned, nil
}

func (c *Seq2SeqClient) callOptions(params GenerationParams) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTemperature(0),
		llms.WithSeed(c.seed),
	}
	if params.MaxNewTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxNewTokens))
	}

	metadata := map[string]interface{}{}
	if params.NumBeams > 0 {
		metadata["num_beams"] = params.NumBeams
	}
	if params.LengthPenalty != 0 {
		metadata["length_penalty"] = params.LengthPenalty
	}
	if params.EarlyStopping {
		metadata["early_stopping"] = true
	}
	if len(metadata) > 0 {
		opts = append(opts, llms.WithMetadata(metadata))
	}
	return opts
}

// stripThinkBlocks removes reasoning blocks some chat models prepend to
// their answer.
func stripThinkBlocks(s string) string {
	s = strings.TrimSpace(s)
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			return s
		}
		s = strings.TrimSpace(s[:start] + s[start+end+len("</think>"):])
	}
}

// extractJSONObject returns the text between the first '{' and the last '}'
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
