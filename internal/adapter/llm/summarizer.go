package llm

import (
	"context"
	"fmt"

	"quiz-pipeline/internal/domain"
)

const summarizePrefix = "summarize: "

const instructSummaryPrompt = `Summarize the following text in English. Respond with the summary only, as plain sentences, without a title or bullet points.

Text:
%s`

// Summarizer implements domain.Summarizer on top of a Seq2SeqClient
type Summarizer struct {
	client         *Seq2SeqClient
	style          string
	maxInputTokens int
	lengthPenalty  float64
}

func NewSummarizer(client *Seq2SeqClient, style string, maxInputTokens int, lengthPenalty float64) (*Summarizer, error) {
	if err := checkStyle(style); err != nil {
		return nil, err
	}
	return &Summarizer{
		client:         client,
		style:          style,
		maxInputTokens: maxInputTokens,
		lengthPenalty:  lengthPenalty,
	}, nil
}

// Summarize returns the raw decoded summary of text
func (s *Summarizer) Summarize(ctx context.Context, text string, params domain.SummaryParams) (string, error) {
	var input string
	switch s.style {
	case PromptStyleInstruct:
		input = fmt.Sprintf(instructSummaryPrompt, s.client.Truncate(text, s.maxInputTokens))
	default:
		input = s.client.Truncate(summarizePrefix+text, s.maxInputTokens)
	}

	return s.client.Generate(ctx, input, GenerationParams{
		MaxNewTokens:  params.MaxNewTokens,
		NumBeams:      params.NumBeams,
		LengthPenalty: s.lengthPenalty,
	})
}

func checkStyle(style string) error {
	switch style {
	case PromptStyleSeq2Seq, PromptStyleInstruct:
		return nil
	}
	return fmt.Errorf("unsupported prompt style %q", style)
}

var _ domain.Summarizer = (*Summarizer)(nil)
