package dto

import "time"

// GenerateQuizRequest asks for a summary and quiz of one lesson text
// @Description Exactly one of text or source must be set. source is a path relative to the server source root
type GenerateQuizRequest struct {
	Text             string `json:"text,omitempty" example:"Marie Curie won the Nobel Prize in Physics in 1903."`
	Source           string `json:"source,omitempty" example:"lessons/curie.txt"`
	MaxQuestions     int    `json:"max_questions,omitempty" example:"7"`
	MaxSummaryTokens int    `json:"max_summary_tokens,omitempty" example:"150"`
	BeamWidth        int    `json:"beam_width,omitempty" example:"4"`
}

// QuizItemResponse is one generated question
type QuizItemResponse struct {
	SourceSentence string `json:"source_sentence"`
	Answer         string `json:"answer"`
	AnswerType     string `json:"answer_type"`
	Question       string `json:"question"`
}

// QuizRunResponse represents a pipeline result in the API response
// @Description Summary and quiz generated from one lesson text
type QuizRunResponse struct {
	ID           string             `json:"id,omitempty"`
	Source       string             `json:"source,omitempty"`
	OriginalLang string             `json:"original_lang"`
	FinalSummary string             `json:"final_summary"`
	QuizResults  []QuizItemResponse `json:"quiz_results"`
	Cached       bool               `json:"cached"`
	CreatedAt    time.Time          `json:"created_at"`
}

// QuizRunListResponse lists stored runs, newest first
type QuizRunListResponse struct {
	Runs []QuizRunResponse `json:"runs"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Error string `json:"error"`
}
