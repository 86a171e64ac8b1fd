package adapter

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"quiz-pipeline/internal/adapter/langdetect"
	"quiz-pipeline/internal/adapter/llm"
	"quiz-pipeline/internal/adapter/nlp"
	"quiz-pipeline/internal/adapter/tokenizer"
	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/domain"
)

// ModelFactory builds the backend model for one inference component
type ModelFactory func(inf config.InferenceConfig, mc config.ModelConfig) (llms.Model, error)

// NewModels constructs every inference component from configuration
func NewModels(cfg *config.Config, logger *zap.Logger) (*domain.Models, error) {
	return NewModelsWithFactory(cfg, llm.NewModel, logger)
}

// NewModelsWithFactory is NewModels with a custom backend factory.
// Summarizer and question models are mandatory. A translation model that
// cannot be built disables translation in that direction and is logged.
func NewModelsWithFactory(cfg *config.Config, factory ModelFactory, logger *zap.Logger) (*domain.Models, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tok, err := tokenizer.New(cfg.Pipeline.TokenizerEncoding)
	if err != nil {
		logger.Warn("BPE tokenizer unavailable, truncating on whitespace",
			zap.String("encoding", cfg.Pipeline.TokenizerEncoding),
			zap.Error(err))
	}

	newClient := func(mc config.ModelConfig) (*llm.Seq2SeqClient, error) {
		model, err := factory(cfg.Inference, mc)
		if err != nil {
			return nil, err
		}
		return llm.NewSeq2SeqClient(model, llm.ClientOptions{
			Name:      mc.Model,
			Seed:      cfg.Inference.Seed,
			Timeout:   cfg.Inference.Timeout,
			Tokenizer: tok,
		}, logger)
	}

	models := &domain.Models{
		Detector: langdetect.NewLinguaDetector(cfg.Inference.LanguageMinDistance),
		Analyzer: nlp.NewProseAnalyzer(),
	}

	summClient, err := newClient(cfg.Inference.Summarizer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	models.Summarizer, err = llm.NewSummarizer(summClient, cfg.Inference.Summarizer.PromptStyle,
		cfg.Pipeline.MaxSourceTokensSummary, cfg.Pipeline.LengthPenalty)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	questionClient, err := newClient(cfg.Inference.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize question generator: %w", err)
	}
	models.Questions, err = llm.NewQuestionGenerator(questionClient, cfg.Inference.Questions.PromptStyle,
		cfg.Pipeline.MaxSourceTokensQuestion, cfg.Pipeline.MaxQuestionTokens, cfg.Pipeline.QuestionBeams)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize question generator: %w", err)
	}

	if !cfg.Inference.TranslationEnabled {
		logger.Info("Translation disabled, all input is processed as English")
		return models, nil
	}

	forward, err := newTranslator(newClient, cfg.Inference.Translation, cfg.Pipeline.MaxSourceTokensTranslation, false)
	if err != nil {
		logger.Warn("Translation model unavailable, translation disabled",
			zap.String("model", cfg.Inference.Translation.Model), zap.Error(err))
		return models, nil
	}
	models.Translator = forward

	back, err := newTranslator(newClient, cfg.Inference.BackTranslator, cfg.Pipeline.MaxSourceTokensTranslation, true)
	if err != nil {
		logger.Warn("Back-translation model unavailable, results stay English",
			zap.String("model", cfg.Inference.BackTranslator.Model), zap.Error(err))
		return models, nil
	}
	models.BackTranslator = back

	return models, nil
}

func newTranslator(newClient func(config.ModelConfig) (*llm.Seq2SeqClient, error), mc config.ModelConfig, maxTokens int, targetToken bool) (*llm.Translator, error) {
	client, err := newClient(mc)
	if err != nil {
		return nil, err
	}
	return llm.NewTranslator(client, mc.PromptStyle, maxTokens, targetToken)
}
