package domain

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultLanguage is assumed whenever detection fails or is disabled.
	DefaultLanguage = "en"

	// ConceptAnswerType is assigned to answers without a recognizable entity.
	ConceptAnswerType = "CONCEPT"

	DefaultMaxQuestions     = 7
	DefaultMaxSummaryTokens = 150
	DefaultBeamWidth        = 4
)

// Document is a unit of source text flowing through the pipeline
type Document struct {
	Text      string
	Language  string
	Sentences []string
}

// CandidateAnswer is a span extracted from a sentence that a question can be
// asked about.
type CandidateAnswer struct {
	Text string
	Type string
}

// QuizItem is one accepted question
type QuizItem struct {
	SourceSentence string `json:"source_sentence"`
	Answer         string `json:"answer"`
	AnswerType     string `json:"answer_type"`
	Question       string `json:"question"`
}

// PipelineResult is what one pipeline invocation returns to its caller
type PipelineResult struct {
	FinalSummary string     `json:"final_summary"`
	QuizResults  []QuizItem `json:"quiz_results"`
	OriginalLang string     `json:"original_lang"`

	// Degraded is set when a translation step failed and English output
	// was returned in its place
	Degraded bool `json:"-"`
}

// RunOptions are the caller-supplied budgets of a pipeline run
type RunOptions struct {
	MaxQuestions     int
	MaxSummaryTokens int
	BeamWidth        int
}

// WithDefaults fills non-positive token and beam budgets. MaxQuestions is
// left as given: a non-positive question budget legitimately yields no items.
func (o RunOptions) WithDefaults() RunOptions {
	if o.MaxSummaryTokens <= 0 {
		o.MaxSummaryTokens = DefaultMaxSummaryTokens
	}
	if o.BeamWidth <= 0 {
		o.BeamWidth = DefaultBeamWidth
	}
	return o
}

// SummaryParams controls one summarization call
type SummaryParams struct {
	MaxNewTokens int
	NumBeams     int
}

// Entity is a recognized named entity
type Entity struct {
	Text  string
	Label string
}

// SentenceAnalysis holds the linguistic annotations of one sentence
type SentenceAnalysis struct {
	Text       string
	Entities   []Entity
	NounChunks []string
}

// Analysis is the output of a TextAnalyzer over a whole text
type Analysis struct {
	Sentences []SentenceAnalysis
}

// Entities returns every entity of the analysis in document order
func (a *Analysis) Entities() []Entity {
	var out []Entity
	for _, s := range a.Sentences {
		out = append(out, s.Entities...)
	}
	return out
}

// LanguageDetector identifies the language of a text as an ISO 639-1 code.
// It returns ErrLanguageUndetected when no language can be determined.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

// Translator translates a batch of texts into targetLang. The output is
// positional: element i is the translation of texts[i].
type Translator interface {
	Translate(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// Summarizer produces a summary of an English text
type Summarizer interface {
	Summarize(ctx context.Context, text string, params SummaryParams) (string, error)
}

// QuestionGenerator writes a question whose answer is answer, given the
// sentence it was taken from.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, sentence, answer string) (string, error)
}

// TextAnalyzer segments text into sentences and annotates entities and noun
// chunks.
type TextAnalyzer interface {
	Analyze(text string) (*Analysis, error)
}

// SourceLoader reads source text from a location. Missing locations are
// reported as ErrInputNotFound.
type SourceLoader interface {
	Load(ctx context.Context, location string) (string, error)
}

// Models is the set of inference components shared read-only by every
// pipeline run. Translator and BackTranslator may be nil when translation is
// disabled or the reverse model is unavailable.
type Models struct {
	Detector       LanguageDetector
	Translator     Translator
	BackTranslator Translator
	Summarizer     Summarizer
	Questions      QuestionGenerator
	Analyzer       TextAnalyzer

	closers []func() error
}

// OnClose registers a release hook run by Close in reverse order
func (m *Models) OnClose(fn func() error) {
	m.closers = append(m.closers, fn)
}

// Close releases every resource registered with OnClose
func (m *Models) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Validate reports which mandatory components are missing
func (m *Models) Validate() error {
	switch {
	case m == nil:
		return errors.New("models are not initialized")
	case m.Detector == nil:
		return errors.New("language detector is not configured")
	case m.Summarizer == nil:
		return errors.New("summarizer is not configured")
	case m.Questions == nil:
		return errors.New("question generator is not configured")
	case m.Analyzer == nil:
		return errors.New("text analyzer is not configured")
	}
	return nil
}

// QuizRun is a persisted pipeline result
type QuizRun struct {
	ID           string
	SourceName   string
	OriginalLang string
	FinalSummary string
	Items        []QuizItem
	CreatedAt    time.Time
}

// QuizRunRepository persists pipeline results
type QuizRunRepository interface {
	SaveQuizRun(ctx context.Context, run *QuizRun) error
	// GetQuizRunByID returns nil, nil when no run exists with the id
	GetQuizRunByID(ctx context.Context, id string) (*QuizRun, error)
	ListRecentQuizRuns(ctx context.Context, limit int) ([]*QuizRun, error)
}
