package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"quiz-pipeline/internal/domain"
)

// --- MockDetector ---
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(text string) (string, error) {
	args := m.Called(text)
	return args.String(0), args.Error(1)
}

// --- MockTranslator ---
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	args := m.Called(ctx, texts, targetLang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- MockSummarizer ---
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string, params domain.SummaryParams) (string, error) {
	args := m.Called(ctx, text, params)
	return args.String(0), args.Error(1)
}

// --- MockQuestionGenerator ---
type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) GenerateQuestion(ctx context.Context, sentence, answer string) (string, error) {
	args := m.Called(ctx, sentence, answer)
	return args.String(0), args.Error(1)
}

// --- MockSourceLoader ---
type MockSourceLoader struct {
	mock.Mock
}

func (m *MockSourceLoader) Load(ctx context.Context, location string) (string, error) {
	args := m.Called(ctx, location)
	return args.String(0), args.Error(1)
}

// --- MockQuizRunRepository ---
type MockQuizRunRepository struct {
	mock.Mock
}

func (m *MockQuizRunRepository) SaveQuizRun(ctx context.Context, run *domain.QuizRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockQuizRunRepository) GetQuizRunByID(ctx context.Context, id string) (*domain.QuizRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizRun), args.Error(1)
}

func (m *MockQuizRunRepository) ListRecentQuizRuns(ctx context.Context, limit int) ([]*domain.QuizRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QuizRun), args.Error(1)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// stubAnalyzer splits text on ". " and annotates each sentence from fixed
// tables keyed by sentence text; answers are typed through the entities
// table as well.
type stubAnalyzer struct {
	mu       sync.Mutex
	entities map[string][]domain.Entity
	chunks   map[string][]string
	calls    []string
	err      error
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{
		entities: map[string][]domain.Entity{},
		chunks:   map[string][]string{},
	}
}

func (a *stubAnalyzer) Analyze(text string) (*domain.Analysis, error) {
	a.mu.Lock()
	a.calls = append(a.calls, text)
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}

	analysis := &domain.Analysis{}
	for _, s := range splitSentences(text) {
		analysis.Sentences = append(analysis.Sentences, domain.SentenceAnalysis{
			Text:       s,
			Entities:   a.entities[s],
			NounChunks: a.chunks[s],
		})
	}
	return analysis, nil
}

func splitSentences(text string) []string {
	var out []string
	for _, part := range strings.SplitAfter(text, ". ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// --- MockPipelineRunner ---
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) Run(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error) {
	args := m.Called(ctx, text, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PipelineResult), args.Error(1)
}

func (m *MockPipelineRunner) Load(ctx context.Context, location string) (string, error) {
	args := m.Called(ctx, location)
	return args.String(0), args.Error(1)
}

func (m *MockPipelineRunner) Defaults() domain.RunOptions {
	return domain.RunOptions{MaxQuestions: 7, MaxSummaryTokens: 150, BeamWidth: 4}
}
