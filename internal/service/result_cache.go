package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quiz-pipeline/internal/cache"
	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/logger"
)

// ErrResultNotCached is returned when no result is cached for a run
var ErrResultNotCached = errors.New("pipeline result not found in cache")

// ResultCache stores pipeline results by input text and run budgets. Runs
// are deterministic, so an identical request can be answered from cache.
type ResultCache interface {
	Put(ctx context.Context, text string, opts domain.RunOptions, result *domain.PipelineResult) error
	Get(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error)
}

type resultCacheImpl struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewResultCache creates a ResultCache over cache. A nil cache yields a
// no-op implementation.
func NewResultCache(cache domain.Cache, ttl time.Duration) ResultCache {
	if cache == nil {
		logger.Get().Warn("ResultCache initialized with nil cache. Service will be no-op.")
		return &noopResultCache{}
	}
	return &resultCacheImpl{cache: cache, ttl: ttl}
}

// ResultCacheKey derives the cache key of a run
func ResultCacheKey(text string, opts domain.RunOptions) string {
	sum := sha256.Sum256([]byte(text))
	return cache.GenerateCacheKey("pipeline", "result", hex.EncodeToString(sum[:]),
		strconv.Itoa(opts.MaxQuestions),
		strconv.Itoa(opts.MaxSummaryTokens),
		strconv.Itoa(opts.BeamWidth))
}

func (s *resultCacheImpl) Put(ctx context.Context, text string, opts domain.RunOptions, result *domain.PipelineResult) error {
	if result == nil {
		return domain.NewInvalidInputError("cannot cache nil result")
	}

	key := ResultCacheKey(text, opts)
	data, err := json.Marshal(result)
	if err != nil {
		return domain.NewInternalError("failed to marshal result for caching", err)
	}

	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		logger.Get().Error("Failed to cache pipeline result", zap.Error(err), zap.String("key", key))
		return domain.NewInternalError(fmt.Sprintf("failed to set pipeline result to cache for key %s", key), err)
	}
	logger.Get().Debug("Cached pipeline result", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *resultCacheImpl) Get(ctx context.Context, text string, opts domain.RunOptions) (*domain.PipelineResult, error) {
	key := ResultCacheKey(text, opts)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Debug("Pipeline result cache miss", zap.String("key", key))
			return nil, ErrResultNotCached
		}
		return nil, domain.NewInternalError(fmt.Sprintf("failed to get pipeline result from cache for key %s", key), err)
	}
	if data == "" {
		return nil, ErrResultNotCached
	}

	var result domain.PipelineResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		// drop the unreadable entry so the next run can replace it
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			logger.Get().Warn("Failed to evict corrupt pipeline result", zap.Error(delErr), zap.String("key", key))
		}
		return nil, domain.NewInternalError(fmt.Sprintf("failed to unmarshal pipeline result from cache for key %s", key), err)
	}
	if result.QuizResults == nil {
		result.QuizResults = []domain.QuizItem{}
	}
	return &result, nil
}

type noopResultCache struct{}

func (noopResultCache) Put(context.Context, string, domain.RunOptions, *domain.PipelineResult) error {
	return nil
}

func (noopResultCache) Get(context.Context, string, domain.RunOptions) (*domain.PipelineResult, error) {
	return nil, ErrResultNotCached
}
