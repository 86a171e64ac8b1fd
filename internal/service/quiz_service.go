package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/dto"
	"quiz-pipeline/internal/metrics"
	"quiz-pipeline/internal/util"
	"quiz-pipeline/internal/validation"
)

// PipelineRunner is the part of Pipeline the quiz service depends on
type PipelineRunner interface {
	Run(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error)
	Load(ctx context.Context, location string) (string, error)
	Defaults() domain.RunOptions
}

var _ PipelineRunner = (*Pipeline)(nil)

// QuizService defines the interface for quiz generation operations
type QuizService interface {
	GenerateQuiz(ctx context.Context, req *dto.GenerateQuizRequest) (*dto.QuizRunResponse, error)
	GetQuizRun(ctx context.Context, id string) (*dto.QuizRunResponse, error)
	ListQuizRuns(ctx context.Context, limit int) (*dto.QuizRunListResponse, error)
}

type quizService struct {
	pipeline  PipelineRunner
	repo      domain.QuizRunRepository
	results   ResultCache
	validator *validation.Validator
	sem       *semaphore.Weighted
	logger    *zap.Logger
}

// NewQuizService creates a quiz service. repo may be nil, in which case runs
// are not stored; results may be nil to disable result caching.
func NewQuizService(
	pipeline PipelineRunner,
	repo domain.QuizRunRepository,
	results ResultCache,
	maxConcurrentRuns int,
	logger *zap.Logger,
) QuizService {
	if maxConcurrentRuns < 1 {
		maxConcurrentRuns = 1
	}
	if results == nil {
		results = &noopResultCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &quizService{
		pipeline:  pipeline,
		repo:      repo,
		results:   results,
		validator: validation.NewValidator(),
		sem:       semaphore.NewWeighted(int64(maxConcurrentRuns)),
		logger:    logger,
	}
}

// GenerateQuiz implements QuizService
func (s *quizService) GenerateQuiz(ctx context.Context, req *dto.GenerateQuizRequest) (*dto.QuizRunResponse, error) {
	if errs := s.validator.ValidateGenerateQuizRequest(req); len(errs) > 0 {
		return nil, errs
	}

	opts := s.runOptions(req)

	text := req.Text
	if req.Source != "" {
		loaded, err := s.pipeline.Load(ctx, req.Source)
		if err != nil {
			return nil, err
		}
		if errs := s.validator.ValidateSourceText(loaded); len(errs) > 0 {
			return nil, errs
		}
		text = loaded
	}

	result, cached := s.cachedResult(ctx, text, opts)
	if !cached {
		var err error
		result, err = s.run(ctx, text, opts)
		if err != nil {
			return nil, err
		}
		// a fallback result must not outlive the outage that caused it
		if result.Degraded {
			s.logger.Info("Not caching degraded pipeline result", zap.String("original_lang", result.OriginalLang))
		} else if err := s.results.Put(ctx, text, opts, result); err != nil {
			s.logger.Warn("Failed to cache pipeline result", zap.Error(err))
		}
	}

	run := &domain.QuizRun{
		SourceName:   req.Source,
		OriginalLang: result.OriginalLang,
		FinalSummary: result.FinalSummary,
		Items:        result.QuizResults,
		CreatedAt:    time.Now().UTC(),
	}
	if s.repo != nil {
		run.ID = util.NewULID()
		if err := s.repo.SaveQuizRun(ctx, run); err != nil {
			return nil, domain.NewInternalError("Failed to save quiz run", err)
		}
	}

	resp := toQuizRunResponse(run)
	resp.Cached = cached
	return resp, nil
}

func (s *quizService) runOptions(req *dto.GenerateQuizRequest) domain.RunOptions {
	defaults := s.pipeline.Defaults()
	opts := domain.RunOptions{
		MaxQuestions:     req.MaxQuestions,
		MaxSummaryTokens: req.MaxSummaryTokens,
		BeamWidth:        req.BeamWidth,
	}
	if opts.MaxQuestions == 0 {
		opts.MaxQuestions = defaults.MaxQuestions
	}
	if opts.MaxSummaryTokens == 0 {
		opts.MaxSummaryTokens = defaults.MaxSummaryTokens
	}
	if opts.BeamWidth == 0 {
		opts.BeamWidth = defaults.BeamWidth
	}
	return opts
}

func (s *quizService) cachedResult(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, bool) {
	result, err := s.results.Get(ctx, text, opts)
	if err != nil {
		if !errors.Is(err, ErrResultNotCached) {
			s.logger.Warn("Result cache lookup failed", zap.Error(err))
		}
		return nil, false
	}
	metrics.PipelineRuns.WithLabelValues(metrics.StatusCached).Inc()
	return result, true
}

// run executes the pipeline once a slot of the run semaphore is free
func (s *quizService) run(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, domain.NewInternalError("Canceled while waiting for a pipeline slot", err)
	}
	defer s.sem.Release(1)

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	return s.pipeline.Run(ctx, text, opts)
}

// GetQuizRun implements QuizService
func (s *quizService) GetQuizRun(ctx context.Context, id string) (*dto.QuizRunResponse, error) {
	if errs := s.validator.ValidateQuizRunID(id); len(errs) > 0 {
		return nil, errs
	}
	if s.repo == nil {
		return nil, domain.NewQuizRunNotFoundError(id)
	}

	run, err := s.repo.GetQuizRunByID(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("Failed to get quiz run", err)
	}
	if run == nil {
		return nil, domain.NewQuizRunNotFoundError(id)
	}
	return toQuizRunResponse(run), nil
}

// ListQuizRuns implements QuizService
func (s *quizService) ListQuizRuns(ctx context.Context, limit int) (*dto.QuizRunListResponse, error) {
	if errs := s.validator.ValidateListLimit(limit); len(errs) > 0 {
		return nil, errs
	}
	resp := &dto.QuizRunListResponse{Runs: []dto.QuizRunResponse{}}
	if s.repo == nil {
		return resp, nil
	}

	runs, err := s.repo.ListRecentQuizRuns(ctx, limit)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quiz runs", err)
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, *toQuizRunResponse(run))
	}
	return resp, nil
}

func toQuizRunResponse(run *domain.QuizRun) *dto.QuizRunResponse {
	items := make([]dto.QuizItemResponse, 0, len(run.Items))
	for _, item := range run.Items {
		items = append(items, dto.QuizItemResponse{
			SourceSentence: item.SourceSentence,
			Answer:         item.Answer,
			AnswerType:     item.AnswerType,
			Question:       item.Question,
		})
	}
	return &dto.QuizRunResponse{
		ID:           run.ID,
		Source:       run.SourceName,
		OriginalLang: run.OriginalLang,
		FinalSummary: run.FinalSummary,
		QuizResults:  items,
		CreatedAt:    run.CreatedAt,
	}
}
