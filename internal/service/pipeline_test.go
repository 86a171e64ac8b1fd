package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"quiz-pipeline/internal/adapter/nlp"
	"quiz-pipeline/internal/config"
	"quiz-pipeline/internal/domain"
)

const (
	sentenceCurie = "Marie Curie won the Nobel Prize in 1903."
	sentenceShort = "Short one here."
	sentenceDecay = "Radioactive decay releases ionizing radiation energy."
	sourceText    = "Marie Curie a câștigat Premiul Nobel în 1903. Dezintegrarea radioactivă eliberează energie."
)

var testSummary = sentenceCurie + " " + sentenceShort + " " + sentenceDecay

type pipelineFixture struct {
	detector   *MockDetector
	translator *MockTranslator
	back       *MockTranslator
	summarizer *MockSummarizer
	questions  *MockQuestionGenerator
	analyzer   *stubAnalyzer
	loader     *MockSourceLoader
	models     *domain.Models
	pipeline   *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		detector:   new(MockDetector),
		translator: new(MockTranslator),
		back:       new(MockTranslator),
		summarizer: new(MockSummarizer),
		questions:  new(MockQuestionGenerator),
		analyzer:   newStubAnalyzer(),
		loader:     new(MockSourceLoader),
	}

	f.analyzer.entities[sentenceCurie] = []domain.Entity{
		{Text: "Marie Curie", Label: "PERSON"},
		{Text: "1903", Label: "DATE"},
	}
	f.analyzer.chunks[sentenceCurie] = []string{"Marie Curie", "the Nobel Prize"}
	f.analyzer.chunks[sentenceDecay] = []string{"Radioactive decay", "ionizing radiation energy"}
	f.analyzer.entities["Marie Curie"] = []domain.Entity{{Text: "Marie Curie", Label: "PERSON"}}
	f.analyzer.entities["1903"] = []domain.Entity{{Text: "1903", Label: "DATE"}}

	f.models = &domain.Models{
		Detector:       f.detector,
		Translator:     f.translator,
		BackTranslator: f.back,
		Summarizer:     f.summarizer,
		Questions:      f.questions,
		Analyzer:       f.analyzer,
	}
	f.pipeline = f.newPipeline(t)
	return f
}

func (f *pipelineFixture) newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(f.models, f.loader, config.PipelineConfig{
		MinSentenceWords:        5,
		DefaultMaxQuestions:     7,
		DefaultMaxSummaryTokens: 150,
		DefaultBeamWidth:        4,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

// expectQuestions registers the generator answers for the fixture summary
func (f *pipelineFixture) expectQuestions() {
	f.questions.On("GenerateQuestion", mock.Anything, sentenceCurie, "Marie Curie").Return("Who won the Nobel Prize in 1903?", nil)
	f.questions.On("GenerateQuestion", mock.Anything, sentenceCurie, "1903").Return("When did Marie Curie win the Nobel Prize?", nil)
	f.questions.On("GenerateQuestion", mock.Anything, sentenceDecay, "Radioactive decay").Return("What releases ionizing radiation energy?", nil)
	f.questions.On("GenerateQuestion", mock.Anything, sentenceDecay, "ionizing radiation energy").Return("Why is radioactive decay dangerous?", nil)
}

func englishItems() []domain.QuizItem {
	return []domain.QuizItem{
		{SourceSentence: sentenceCurie, Answer: "Marie Curie", AnswerType: "PERSON", Question: "Who won the Nobel Prize in 1903?"},
		{SourceSentence: sentenceCurie, Answer: "1903", AnswerType: "DATE", Question: "When did Marie Curie win the Nobel Prize?"},
		{SourceSentence: sentenceDecay, Answer: "Radioactive decay", AnswerType: "CONCEPT", Question: "What releases ionizing radiation energy?"},
	}
}

func TestNewPipeline_RequiresModels(t *testing.T) {
	_, err := NewPipeline(&domain.Models{}, nil, config.PipelineConfig{}, nil)
	assert.Error(t, err)
}

func TestPipeline_Run_English(t *testing.T) {
	f := newPipelineFixture(t)
	text := "Marie Curie was a physicist. She studied radioactivity."
	f.detector.On("Detect", text).Return("en", nil)
	f.summarizer.On("Summarize", mock.Anything, text, domain.SummaryParams{MaxNewTokens: 150, NumBeams: 4}).
		Return(testSummary+" And then the", nil)
	f.expectQuestions()

	result, err := f.pipeline.Run(context.Background(), text, domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)

	assert.Equal(t, "en", result.OriginalLang)
	assert.Equal(t, testSummary, result.FinalSummary, "trailing fragment is trimmed")
	assert.Equal(t, englishItems(), result.QuizResults)
	assert.False(t, result.Degraded)

	f.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	f.back.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	f.questions.AssertNumberOfCalls(t, "GenerateQuestion", 4)
}

func TestPipeline_Run_UsesGivenBudgets(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.On("Detect", "text").Return("en", nil)
	f.summarizer.On("Summarize", mock.Anything, "text", domain.SummaryParams{MaxNewTokens: 60, NumBeams: 2}).
		Return("Too short.", nil)

	result, err := f.pipeline.Run(context.Background(), "text", domain.RunOptions{MaxQuestions: 3, MaxSummaryTokens: 60, BeamWidth: 2})
	require.NoError(t, err)
	assert.Equal(t, "Too short.", result.FinalSummary)
	assert.Empty(t, result.QuizResults)
	assert.NotNil(t, result.QuizResults)
	f.summarizer.AssertExpectations(t)
}

func TestPipeline_GenerateQuiz_ShortSentencesYieldNothing(t *testing.T) {
	f := newPipelineFixture(t)

	items, err := f.pipeline.GenerateQuiz(context.Background(), "Cells divide. Plants grow fast. It is green today.", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	f.questions.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_GenerateQuiz_StopsAtMaxQuestions(t *testing.T) {
	for _, max := range []int{1, 2, 3, 10} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			f := newPipelineFixture(t)
			f.expectQuestions()

			items, err := f.pipeline.GenerateQuiz(context.Background(), testSummary, max)
			require.NoError(t, err)

			want := englishItems()
			if max < len(want) {
				want = want[:max]
			}
			assert.Equal(t, want, items)
			assert.LessOrEqual(t, len(items), max)

			// generation stops as soon as the budget is reached
			calls := 4
			if max <= 3 {
				calls = max
			}
			f.questions.AssertNumberOfCalls(t, "GenerateQuestion", calls)
		})
	}
}

func TestPipeline_GenerateQuiz_NonPositiveMax(t *testing.T) {
	f := newPipelineFixture(t)

	for _, max := range []int{0, -3} {
		items, err := f.pipeline.GenerateQuiz(context.Background(), testSummary, max)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
	assert.Empty(t, f.analyzer.calls)
}

func TestPipeline_GenerateQuiz_AcceptedQuestionsMatchTheirType(t *testing.T) {
	f := newPipelineFixture(t)
	f.questions.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything).Return("What happened then?", nil)

	items, err := f.pipeline.GenerateQuiz(context.Background(), testSummary, 10)
	require.NoError(t, err)

	// "what" is not an opening for PERSON or DATE answers
	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, domain.IsSemanticallyValid(item.Question, item.AnswerType), item.Question)
		lower := strings.ToLower(item.Question)
		ok := false
		for _, start := range domain.AllowedQuestionStarts(item.AnswerType) {
			ok = ok || strings.HasPrefix(lower, start)
		}
		assert.True(t, ok)
	}
}

func TestPipeline_GenerateQuiz_GeneratorErrorIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.questions.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model offline"))

	_, err := f.pipeline.GenerateQuiz(context.Background(), testSummary, 5)
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrLLMServiceError, domainErr.Code)
}

func TestPipeline_GenerateQuiz_AnalyzerError(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyzer.err = errors.New("segmenter failed")

	_, err := f.pipeline.GenerateQuiz(context.Background(), testSummary, 5)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrInternal, domainErr.Code)
}

func TestPipeline_GenerateQuiz_CanceledContext(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.GenerateQuiz(ctx, testSummary, 5)
	assert.ErrorIs(t, err, context.Canceled)
	f.questions.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.On("Detect", "text").Return("en", nil)
	f.summarizer.On("Summarize", mock.Anything, "text", mock.Anything).Return(testSummary, nil)
	f.expectQuestions()

	first, err := f.pipeline.Run(context.Background(), "text", domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)
	second, err := f.pipeline.Run(context.Background(), "text", domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_Run_TranslatesAndBackTranslates(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.On("Detect", sourceText).Return("ro", nil)
	f.translator.On("Translate", mock.Anything, []string{sourceText}, "en").Return([]string{"english text"}, nil)
	f.summarizer.On("Summarize", mock.Anything, "english text", mock.Anything).Return(testSummary, nil)
	f.expectQuestions()
	f.back.On("Translate", mock.Anything, []string{
		testSummary,
		"Who won the Nobel Prize in 1903?", "Marie Curie",
		"When did Marie Curie win the Nobel Prize?", "1903",
		"What releases ionizing radiation energy?", "Radioactive decay",
	}, "ro").Return([]string{
		"Rezumat.",
		"Cine a câștigat Premiul Nobel în 1903?", "Marie Curie",
		"Când a câștigat Marie Curie Premiul Nobel?", "1903",
		"Ce eliberează energie?", "Dezintegrarea radioactivă",
	}, nil)

	result, err := f.pipeline.Run(context.Background(), sourceText, domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)

	assert.Equal(t, "ro", result.OriginalLang)
	assert.Equal(t, "Rezumat.", result.FinalSummary)
	assert.False(t, result.Degraded)
	require.Len(t, result.QuizResults, 3)
	assert.Equal(t, domain.QuizItem{
		SourceSentence: sentenceDecay,
		Answer:         "Dezintegrarea radioactivă",
		AnswerType:     "CONCEPT",
		Question:       "Ce eliberează energie?",
	}, result.QuizResults[2])
	for i, item := range result.QuizResults {
		assert.Equal(t, englishItems()[i].SourceSentence, item.SourceSentence, "source sentences stay English")
	}
	f.back.AssertNumberOfCalls(t, "Translate", 1)
}

func TestPipeline_Run_BackTranslationFailures(t *testing.T) {
	tests := []struct {
		name   string
		output []string
		err    error
	}{
		{name: "translator error", err: errors.New("model crashed")},
		{name: "length mismatch", output: []string{"Rezumat."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.detector.On("Detect", sourceText).Return("ro", nil)
			f.translator.On("Translate", mock.Anything, []string{sourceText}, "en").Return([]string{"english text"}, nil)
			f.summarizer.On("Summarize", mock.Anything, "english text", mock.Anything).Return(testSummary, nil)
			f.expectQuestions()
			if tt.err != nil {
				f.back.On("Translate", mock.Anything, mock.Anything, "ro").Return(nil, tt.err)
			} else {
				f.back.On("Translate", mock.Anything, mock.Anything, "ro").Return(tt.output, nil)
			}

			result, err := f.pipeline.Run(context.Background(), sourceText, domain.RunOptions{MaxQuestions: 7})
			require.NoError(t, err)
			assert.Equal(t, "ro", result.OriginalLang)
			assert.Equal(t, testSummary, result.FinalSummary)
			assert.Equal(t, englishItems(), result.QuizResults)
			assert.True(t, result.Degraded)
		})
	}
}

func TestPipeline_Run_NoBackTranslator(t *testing.T) {
	f := newPipelineFixture(t)
	f.models.BackTranslator = nil
	p := f.newPipeline(t)

	f.detector.On("Detect", sourceText).Return("ro", nil)
	f.translator.On("Translate", mock.Anything, []string{sourceText}, "en").Return([]string{"english text"}, nil)
	f.summarizer.On("Summarize", mock.Anything, "english text", mock.Anything).Return(testSummary, nil)
	f.expectQuestions()

	result, err := p.Run(context.Background(), sourceText, domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)
	assert.Equal(t, "ro", result.OriginalLang)
	assert.Equal(t, englishItems(), result.QuizResults)
}

func TestPipeline_NormalizeLanguage(t *testing.T) {
	t.Run("detection failure defaults to English", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.detector.On("Detect", "???").Return("", domain.ErrLanguageUndetected)

		text, lang, ok := f.pipeline.normalizeLanguage(context.Background(), "???")
		assert.Equal(t, "???", text)
		assert.Equal(t, "en", lang)
		assert.True(t, ok)
		f.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("translation failure keeps original text and language", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.detector.On("Detect", sourceText).Return("ro", nil)
		f.translator.On("Translate", mock.Anything, []string{sourceText}, "en").Return(nil, errors.New("timeout"))

		text, lang, ok := f.pipeline.normalizeLanguage(context.Background(), sourceText)
		assert.Equal(t, sourceText, text)
		assert.Equal(t, "ro", lang)
		assert.False(t, ok)
	})

	t.Run("blank text is English", func(t *testing.T) {
		f := newPipelineFixture(t)

		text, lang, _ := f.pipeline.normalizeLanguage(context.Background(), "  \n")
		assert.Equal(t, "  \n", text)
		assert.Equal(t, "en", lang)
		f.detector.AssertNotCalled(t, "Detect", mock.Anything)
	})

	t.Run("translation disabled", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.models.Translator = nil
		p := f.newPipeline(t)

		text, lang, _ := p.normalizeLanguage(context.Background(), sourceText)
		assert.Equal(t, sourceText, text)
		assert.Equal(t, "en", lang)
		f.detector.AssertNotCalled(t, "Detect", mock.Anything)
	})
}

func TestPipeline_Run_SummarizerError(t *testing.T) {
	f := newPipelineFixture(t)
	f.detector.On("Detect", "text").Return("en", nil)
	f.summarizer.On("Summarize", mock.Anything, "text", mock.Anything).Return("", errors.New("connection refused"))

	_, err := f.pipeline.Run(context.Background(), "text", domain.RunOptions{MaxQuestions: 3})
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrLLMServiceError, domainErr.Code)
}

func TestPipeline_RunSource(t *testing.T) {
	t.Run("missing input aborts before inference", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.loader.On("Load", mock.Anything, "lessons/missing.txt").
			Return("", fmt.Errorf("lessons/missing.txt: %w", domain.ErrInputNotFound))

		_, err := f.pipeline.RunSource(context.Background(), "lessons/missing.txt", domain.RunOptions{MaxQuestions: 3})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInputNotFound)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrInputNotFoundCode, domainErr.Code)

		f.detector.AssertNotCalled(t, "Detect", mock.Anything)
		f.summarizer.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("loaded text is processed", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.loader.On("Load", mock.Anything, "lessons/curie.txt").Return("text", nil)
		f.detector.On("Detect", "text").Return("en", nil)
		f.summarizer.On("Summarize", mock.Anything, "text", mock.Anything).Return(testSummary, nil)
		f.expectQuestions()

		result, err := f.pipeline.RunSource(context.Background(), "lessons/curie.txt", domain.RunOptions{MaxQuestions: 1})
		require.NoError(t, err)
		assert.Equal(t, englishItems()[:1], result.QuizResults)
	})

	t.Run("no loader configured", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.loader = nil
		p, err := NewPipeline(f.models, nil, config.PipelineConfig{}, nil)
		require.NoError(t, err)

		_, err = p.RunSource(context.Background(), "x", domain.RunOptions{})
		assert.Error(t, err)
	})
}

func TestExtractAnswers(t *testing.T) {
	tests := []struct {
		name string
		sent domain.SentenceAnalysis
		want []string
	}{
		{
			name: "entities before chunks, deduplicated",
			sent: domain.SentenceAnalysis{
				Entities:   []domain.Entity{{Text: "Ada Lovelace", Label: "PERSON"}, {Text: "1843", Label: "DATE"}},
				NounChunks: []string{"Ada Lovelace", "analytical engine notes"},
			},
			want: []string{"Ada Lovelace", "1843", "analytical engine notes"},
		},
		{
			name: "labels outside the allow-list and short entities are skipped",
			sent: domain.SentenceAnalysis{
				Entities: []domain.Entity{{Text: "two", Label: "CARDINAL"}, {Text: "50%", Label: "PERCENT"}, {Text: "  NASA  ", Label: "ORG"}},
			},
			want: []string{"NASA"},
		},
		{
			name: "noun chunk filters",
			sent: domain.SentenceAnalysis{
				NounChunks: []string{"photosynthesis", "red ox", "The green leaves", "an old oak tree", "A mitochondrial membrane", "chlorophyll molecules"},
			},
			want: []string{"chlorophyll molecules"},
		},
		{
			name: "lengths count characters, not bytes",
			sent: domain.SentenceAnalysis{
				Entities:   []domain.Entity{{Text: "Émé", Label: "GPE"}, {Text: "Łódź", Label: "GPE"}},
				NounChunks: []string{"añ ño", "Ñandú río"},
			},
			want: []string{"Łódź", "Ñandú río"},
		},
		{
			name: "nothing to ask",
			sent: domain.SentenceAnalysis{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswers(tt.sent))
		})
	}
}

func TestPipeline_AnswerType(t *testing.T) {
	f := newPipelineFixture(t)
	sent := domain.SentenceAnalysis{
		Text:     "Marie Curie was born in Warsaw in 1867.",
		Entities: []domain.Entity{{Text: "Warsaw", Label: "GPE"}},
	}

	got, err := f.pipeline.answerType("1903", sent)
	require.NoError(t, err)
	assert.Equal(t, "DATE", got, "entity of the answer alone")

	got, err = f.pipeline.answerType("Warsaw", sent)
	require.NoError(t, err)
	assert.Equal(t, "GPE", got, "isolated span has no entity, label comes from the sentence")

	got, err = f.pipeline.answerType("radioactive decay", sent)
	require.NoError(t, err)
	assert.Equal(t, domain.ConceptAnswerType, got)
}

func TestPipeline_GenerateQuiz_ProseAnalyzer(t *testing.T) {
	f := newPipelineFixture(t)
	f.models.Analyzer = nlp.NewProseAnalyzer()
	p := f.newPipeline(t)
	f.questions.On("GenerateQuestion", mock.Anything, mock.Anything, mock.Anything).
		Return("Name the product Apple released in 2007.", nil)

	items, err := p.GenerateQuiz(context.Background(), "Apple released the iPhone on June 29, 2007 in San Francisco.", 10)
	require.NoError(t, err)

	types := make(map[string]string)
	for _, item := range items {
		types[item.Answer] = item.AnswerType
	}
	assert.Equal(t, "ORG", types["iPhone"])
	assert.NotContains(t, types, "June 29, 2007", "a naming question does not fit a date")
}

func TestPipeline_Run_ForwardTranslationFailureIsDegraded(t *testing.T) {
	f := newPipelineFixture(t)
	f.models.BackTranslator = nil
	p := f.newPipeline(t)

	f.detector.On("Detect", sourceText).Return("ro", nil)
	f.translator.On("Translate", mock.Anything, []string{sourceText}, "en").Return(nil, errors.New("timeout"))
	f.summarizer.On("Summarize", mock.Anything, sourceText, mock.Anything).Return(testSummary, nil)
	f.expectQuestions()

	result, err := p.Run(context.Background(), sourceText, domain.RunOptions{MaxQuestions: 7})
	require.NoError(t, err)
	assert.Equal(t, "ro", result.OriginalLang)
	assert.True(t, result.Degraded)
}

func TestPipeline_Load_KeepsLoaderDomainErrors(t *testing.T) {
	f := newPipelineFixture(t)
	f.loader.On("Load", mock.Anything, "/etc/passwd").
		Return("", domain.NewInvalidInputError("Source must be a relative path"))

	_, err := f.pipeline.Load(context.Background(), "/etc/passwd")
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrInvalidInput, domainErr.Code)
}
