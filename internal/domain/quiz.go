package domain

import (
	"strings"
	"unicode"
)

// closingMarks may follow terminal punctuation and still belong to the
// sentence.
const closingMarks = "\"'”’)]}"

// KeepCompleteSentences trims text so that it ends at the last complete
// sentence. Text without any terminal punctuation is returned right-trimmed
// but otherwise unchanged.
func KeepCompleteSentences(text string) string {
	t := strings.TrimRightFunc(text, unicode.IsSpace)
	idx := strings.LastIndexAny(t, ".!?")
	if idx == -1 {
		return t
	}
	rest := t[idx+1:]
	trimmed := strings.TrimLeft(rest, closingMarks)
	return t[:len(t)-len(trimmed)]
}

// answerTypeStarts maps an answer type to the question openings that can
// plausibly ask for it.
var answerTypeStarts = map[string][]string{
	"PERSON":   {"who", "whom", "whose"},
	"LOC":      {"where", "what"},
	"DATE":     {"when", "in what year"},
	"CARDINAL": {"how many", "what number"},
	"CONCEPT":  {"what", "which", "define", "explain", "what is"},
	"ORG":      {"what", "which", "who", "name"},
	"GPE":      {"where", "what", "which"},
	"UNKNOWN":  {"what", "which"},
}

var defaultQuestionStarts = []string{"what", "which"}

// AllowedQuestionStarts returns the accepted question openings for answerType
func AllowedQuestionStarts(answerType string) []string {
	if starts, ok := answerTypeStarts[answerType]; ok {
		return starts
	}
	return defaultQuestionStarts
}

// IsSemanticallyValid reports whether question opens the way a question about
// an answer of answerType should.
func IsSemanticallyValid(question, answerType string) bool {
	q := strings.ToLower(question)
	for _, start := range AllowedQuestionStarts(answerType) {
		if strings.HasPrefix(q, start) {
			return true
		}
	}
	return false
}
