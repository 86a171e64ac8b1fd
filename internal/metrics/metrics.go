package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusCached  = "cached"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	QuestionsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_pipeline_questions_accepted_total",
			Help: "Generated questions that passed the validity filter",
		},
		[]string{"answer_type"},
	)

	QuestionsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_pipeline_questions_discarded_total",
			Help: "Generated questions rejected by the validity filter",
		},
		[]string{"answer_type"},
	)

	TranslationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_pipeline_translation_fallbacks_total",
			Help: "Translations that failed and fell back to the untranslated text",
		},
		[]string{"direction"},
	)

	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_pipeline_runs_in_flight",
			Help: "Number of pipeline runs currently executing",
		},
	)
)
