package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/metrics"
)

// answerLabels are the entity categories accepted as candidate answers
var answerLabels = map[string]bool{
	"PERSON":   true,
	"ORG":      true,
	"DATE":     true,
	"GPE":      true,
	"LOC":      true,
	"CARDINAL": true,
	"EVENT":    true,
	"TIME":     true,
	"PRODUCT":  true,
	"NORP":     true,
	"LANGUAGE": true,
}

var articlePrefixes = []string{"the ", "a ", "an "}

// Pipeline turns a lesson text into a summary and a list of quiz questions.
// It holds no per-run state; models are shared read-only between runs.
type Pipeline struct {
	models           *domain.Models
	loader           domain.SourceLoader
	minSentenceWords int
	defaults         domain.RunOptions
	logger           *zap.Logger
}

// NewPipeline wires a pipeline over models. loader may be nil when only
// in-memory text is processed.
func NewPipeline(models *domain.Models, loader domain.SourceLoader, cfg config.PipelineConfig, logger *zap.Logger) (*Pipeline, error) {
	if err := models.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	minWords := cfg.MinSentenceWords
	if minWords <= 0 {
		minWords = 5
	}
	return &Pipeline{
		models:           models,
		loader:           loader,
		minSentenceWords: minWords,
		defaults: domain.RunOptions{
			MaxQuestions:     cfg.DefaultMaxQuestions,
			MaxSummaryTokens: cfg.DefaultMaxSummaryTokens,
			BeamWidth:        cfg.DefaultBeamWidth,
		}.WithDefaults(),
		logger: logger,
	}, nil
}

// Defaults returns the budgets used for non-positive run options
func (p *Pipeline) Defaults() domain.RunOptions {
	return p.defaults
}

func (p *Pipeline) withDefaults(opts domain.RunOptions) domain.RunOptions {
	if opts.MaxSummaryTokens <= 0 {
		opts.MaxSummaryTokens = p.defaults.MaxSummaryTokens
	}
	if opts.BeamWidth <= 0 {
		opts.BeamWidth = p.defaults.BeamWidth
	}
	return opts
}

// Load reads the text at location through the configured SourceLoader
func (p *Pipeline) Load(ctx context.Context, location string) (string, error) {
	if p.loader == nil {
		return "", domain.NewInternalError("source loading is not configured", nil)
	}
	text, err := p.loader.Load(ctx, location)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return "", err
		}
		if errors.Is(err, domain.ErrInputNotFound) {
			return "", domain.NewInputNotFoundError(location, err)
		}
		return "", domain.NewInternalError("Failed to read source", err)
	}
	return text, nil
}

// RunSource loads location and runs the pipeline on its text. A missing
// source aborts before any inference.
func (p *Pipeline) RunSource(ctx context.Context, location string, opts domain.RunOptions) (*domain.PipelineResult, error) {
	text, err := p.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, text, opts)
}

// Run executes every stage in order: language normalization, summarization,
// question generation and back-translation.
func (p *Pipeline) Run(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error) {
	opts = p.withDefaults(opts)
	start := time.Now()

	english, lang, translated := p.normalizeLanguage(ctx, text)

	summary, err := p.summarize(ctx, english, opts)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}

	items, err := p.GenerateQuiz(ctx, summary, opts.MaxQuestions)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}

	result := &domain.PipelineResult{
		FinalSummary: summary,
		QuizResults:  items,
		OriginalLang: lang,
		Degraded:     !translated,
	}
	result = p.backTranslate(ctx, result)

	metrics.PipelineRuns.WithLabelValues(metrics.StatusSuccess).Inc()
	p.logger.Info("Pipeline run finished",
		zap.String("original_lang", lang),
		zap.Int("questions", len(result.QuizResults)),
		zap.Int("max_questions", opts.MaxQuestions),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// normalizeLanguage returns the English text to process, the detected
// language and whether that text is usable as English. It never fails:
// every error degrades to processing the text as it is, and a failed
// translation reports false.
func (p *Pipeline) normalizeLanguage(ctx context.Context, text string) (string, string, bool) {
	if p.models.Translator == nil || strings.TrimSpace(text) == "" {
		return text, domain.DefaultLanguage, true
	}
	defer observeStage("language", time.Now())

	lang, err := p.models.Detector.Detect(text)
	if err != nil {
		p.logger.Debug("Language detection failed, assuming English", zap.Error(err))
		return text, domain.DefaultLanguage, true
	}
	if lang == domain.DefaultLanguage {
		return text, lang, true
	}

	translated, err := p.models.Translator.Translate(ctx, []string{text}, domain.DefaultLanguage)
	if err != nil || len(translated) != 1 {
		metrics.TranslationFallbacks.WithLabelValues("forward").Inc()
		p.logger.Warn("Translation to English failed, using original text",
			zap.String("lang", lang),
			zap.Int("results", len(translated)),
			zap.Error(err))
		return text, lang, false
	}
	p.logger.Info("Translated source to English", zap.String("lang", lang))
	return translated[0], lang, true
}

func (p *Pipeline) summarize(ctx context.Context, text string, opts domain.RunOptions) (string, error) {
	defer observeStage("summarize", time.Now())

	raw, err := p.models.Summarizer.Summarize(ctx, text, domain.SummaryParams{
		MaxNewTokens: opts.MaxSummaryTokens,
		NumBeams:     opts.BeamWidth,
	})
	if err != nil {
		p.logger.Error("Summarization failed", zap.Error(err))
		return "", domain.NewLLMServiceError(err)
	}
	return domain.KeepCompleteSentences(raw), nil
}

// GenerateQuiz scans the sentences of summary in order and accepts valid
// questions until maxQuestions items are collected. There is no
// backtracking: a discarded answer is never retried.
func (p *Pipeline) GenerateQuiz(ctx context.Context, summary string, maxQuestions int) ([]domain.QuizItem, error) {
	items := make([]domain.QuizItem, 0)
	if maxQuestions <= 0 {
		return items, nil
	}
	defer observeStage("quiz", time.Now())

	analysis, err := p.models.Analyzer.Analyze(summary)
	if err != nil {
		return nil, domain.NewInternalError("Failed to analyze summary", err)
	}

	for _, sent := range analysis.Sentences {
		if len(items) >= maxQuestions {
			break
		}
		sentence := strings.TrimSpace(sent.Text)
		if len(strings.Fields(sentence)) < p.minSentenceWords {
			continue
		}

		for _, answer := range ExtractAnswers(sent) {
			if len(items) >= maxQuestions {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			answerType, err := p.answerType(answer, sent)
			if err != nil {
				return nil, err
			}
			question, err := p.models.Questions.GenerateQuestion(ctx, sentence, answer)
			if err != nil {
				p.logger.Error("Question generation failed", zap.String("answer", answer), zap.Error(err))
				return nil, domain.NewLLMServiceError(err)
			}

			if !domain.IsSemanticallyValid(question, answerType) {
				metrics.QuestionsDiscarded.WithLabelValues(answerType).Inc()
				p.logger.Debug("Discarding question",
					zap.String("question", question),
					zap.String("answer", answer),
					zap.String("answer_type", answerType))
				continue
			}

			metrics.QuestionsAccepted.WithLabelValues(answerType).Inc()
			items = append(items, domain.QuizItem{
				SourceSentence: sentence,
				Answer:         answer,
				AnswerType:     answerType,
				Question:       question,
			})
		}
	}
	return items, nil
}

// ExtractAnswers lists the candidate answers of one sentence: allowed
// entities first, then multi-word noun chunks, without duplicates.
func ExtractAnswers(sent domain.SentenceAnalysis) []string {
	var answers []string
	seen := make(map[string]bool)

	for _, ent := range sent.Entities {
		text := strings.TrimSpace(ent.Text)
		if !answerLabels[ent.Label] || utf8.RuneCountInString(text) <= 3 || seen[text] {
			continue
		}
		answers = append(answers, text)
		seen[text] = true
	}

	for _, chunk := range sent.NounChunks {
		text := strings.TrimSpace(chunk)
		if len(strings.Fields(text)) <= 1 || utf8.RuneCountInString(text) <= 6 || seen[text] || startsWithArticle(text) {
			continue
		}
		answers = append(answers, text)
		seen[text] = true
	}
	return answers
}

func startsWithArticle(text string) bool {
	lower := strings.ToLower(text)
	for _, prefix := range articlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// answerType classifies answer by the first entity found in it alone. When
// the isolated span yields none, an entity of the source sentence spanning
// exactly the answer gives the label.
func (p *Pipeline) answerType(answer string, sent domain.SentenceAnalysis) (string, error) {
	analysis, err := p.models.Analyzer.Analyze(answer)
	if err != nil {
		return "", domain.NewInternalError("Failed to analyze answer", err)
	}
	if entities := analysis.Entities(); len(entities) > 0 {
		return entities[0].Label, nil
	}
	for _, ent := range sent.Entities {
		if strings.TrimSpace(ent.Text) == answer {
			return ent.Label, nil
		}
	}
	return domain.ConceptAnswerType, nil
}

// backTranslate translates the summary and every question and answer back
// into the source language in a single batch. Source sentences and answer
// types stay English. Any failure returns the English result marked degraded.
func (p *Pipeline) backTranslate(ctx context.Context, result *domain.PipelineResult) *domain.PipelineResult {
	if result.OriginalLang == domain.DefaultLanguage || p.models.BackTranslator == nil {
		return result
	}
	defer observeStage("back_translate", time.Now())

	batch := make([]string, 0, 1+2*len(result.QuizResults))
	batch = append(batch, result.FinalSummary)
	for _, item := range result.QuizResults {
		batch = append(batch, item.Question, item.Answer)
	}

	translated, err := p.models.BackTranslator.Translate(ctx, batch, result.OriginalLang)
	if err == nil && len(translated) != len(batch) {
		err = errors.New("translation batch length mismatch")
	}
	if err != nil {
		metrics.TranslationFallbacks.WithLabelValues("back").Inc()
		p.logger.Warn("Back-translation failed, returning English output",
			zap.String("lang", result.OriginalLang),
			zap.Int("expected", len(batch)),
			zap.Int("got", len(translated)),
			zap.Error(err))
		result.Degraded = true
		return result
	}

	out := &domain.PipelineResult{
		FinalSummary: translated[0],
		QuizResults:  make([]domain.QuizItem, len(result.QuizResults)),
		OriginalLang: result.OriginalLang,
		Degraded:     result.Degraded,
	}
	for i, item := range result.QuizResults {
		out.QuizResults[i] = domain.QuizItem{
			SourceSentence: item.SourceSentence,
			Answer:         translated[2+2*i],
			AnswerType:     item.AnswerType,
			Question:       translated[1+2*i],
		}
	}
	return out
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
