package llm

import (
	"context"
	"fmt"
	"strings"

	"quiz-pipeline/internal/domain"
)

const instructQuestionPrompt = `Write one quiz question about the context below whose correct answer is exactly "%s".
Respond with the question only, ending with a question mark.

Context: %s`

// QuestionGenerator implements domain.QuestionGenerator on top of a
// Seq2SeqClient.
type QuestionGenerator struct {
	client         *Seq2SeqClient
	style          string
	maxInputTokens int
	maxNewTokens   int
	numBeams       int
}

func NewQuestionGenerator(client *Seq2SeqClient, style string, maxInputTokens, maxNewTokens, numBeams int) (*QuestionGenerator, error) {
	if err := checkStyle(style); err != nil {
		return nil, err
	}
	return &QuestionGenerator{
		client:         client,
		style:          style,
		maxInputTokens: maxInputTokens,
		maxNewTokens:   maxNewTokens,
		numBeams:       numBeams,
	}, nil
}

func (g *QuestionGenerator) GenerateQuestion(ctx context.Context, sentence, answer string) (string, error) {
	var input string
	switch g.style {
	case PromptStyleInstruct:
		input = fmt.Sprintf(instructQuestionPrompt, answer, g.client.Truncate(sentence, g.maxInputTokens))
	default:
		input = g.client.Truncate(fmt.Sprintf("answer: %s context: %s", answer, sentence), g.maxInputTokens)
	}

	question, err := g.client.Generate(ctx, input, GenerationParams{
		MaxNewTokens:  g.maxNewTokens,
		NumBeams:      g.numBeams,
		EarlyStopping: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(question), nil
}

var _ domain.QuestionGenerator = (*QuestionGenerator)(nil)
