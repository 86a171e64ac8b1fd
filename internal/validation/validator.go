package validation

import (
	"strings"

	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/dto"
	"quiz-pipeline/internal/util"
)

// Request limits
const (
	MaxQuestions     = 50
	MaxSummaryTokens = 1024
	MaxBeamWidth     = 16
	MaxTextBytes     = 200000
	MaxListLimit     = 100
	DefaultListLimit = 20
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateGenerateQuizRequest checks a generation request. Zero budgets mean
// "use the default" and are accepted.
func (v *Validator) ValidateGenerateQuizRequest(req *dto.GenerateQuizRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if req == nil {
		return append(errors, domain.NewMissingFieldError("text"))
	}

	hasText := strings.TrimSpace(req.Text) != ""
	hasSource := strings.TrimSpace(req.Source) != ""
	switch {
	case !hasText && !hasSource:
		errors = append(errors, domain.NewMissingFieldError("text"))
	case hasText && hasSource:
		errors = append(errors, domain.NewConflictingFieldsError("source", "text"))
	case len(req.Text) > MaxTextBytes:
		errors = append(errors, domain.NewOutOfRangeError("text", len(req.Text), 1, MaxTextBytes))
	}

	if req.MaxQuestions < 0 || req.MaxQuestions > MaxQuestions {
		errors = append(errors, domain.NewOutOfRangeError("max_questions", req.MaxQuestions, 1, MaxQuestions))
	}
	if req.MaxSummaryTokens < 0 || req.MaxSummaryTokens > MaxSummaryTokens {
		errors = append(errors, domain.NewOutOfRangeError("max_summary_tokens", req.MaxSummaryTokens, 0, MaxSummaryTokens))
	}
	if req.BeamWidth < 0 || req.BeamWidth > MaxBeamWidth {
		errors = append(errors, domain.NewOutOfRangeError("beam_width", req.BeamWidth, 0, MaxBeamWidth))
	}

	return errors
}

// ValidateSourceText applies the text size limit to text loaded from source
func (v *Validator) ValidateSourceText(text string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if len(text) > MaxTextBytes {
		errors = append(errors, domain.NewOutOfRangeError("source", len(text), 1, MaxTextBytes))
	}
	return errors
}

// ValidateQuizRunID checks a run id path parameter
func (v *Validator) ValidateQuizRunID(id string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(id) == "" {
		errors = append(errors, domain.NewMissingFieldError("id"))
	} else if !util.IsValidULID(id) {
		errors = append(errors, domain.NewInvalidFormatError("id", id))
	}
	return errors
}

// ValidateListLimit checks the page size of a listing request
func (v *Validator) ValidateListLimit(limit int) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if limit <= 0 || limit > MaxListLimit {
		errors = append(errors, domain.NewOutOfRangeError("limit", limit, 1, MaxListLimit))
	}
	return errors
}
