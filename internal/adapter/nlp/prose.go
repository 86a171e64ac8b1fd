// Package nlp segments English text into sentences and annotates named
// entities and noun chunks.
package nlp

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"quiz-pipeline/internal/domain"
)

// ProseAnalyzer implements domain.TextAnalyzer with prose's segmenter, tagger
// and entity model, completed by pattern rules for dates, times and numbers.
type ProseAnalyzer struct{}

func NewProseAnalyzer() *ProseAnalyzer {
	return &ProseAnalyzer{}
}

func (a *ProseAnalyzer) Analyze(text string) (*domain.Analysis, error) {
	analysis := &domain.Analysis{}
	if strings.TrimSpace(text) == "" {
		return analysis, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}

	for _, sent := range doc.Sentences() {
		sentence := strings.TrimSpace(sent.Text)
		if sentence == "" {
			continue
		}
		sa, err := a.analyzeSentence(sentence)
		if err != nil {
			return nil, err
		}
		analysis.Sentences = append(analysis.Sentences, *sa)
	}
	return analysis, nil
}

func (a *ProseAnalyzer) analyzeSentence(sentence string) (*domain.SentenceAnalysis, error) {
	doc, err := prose.NewDocument(sentence, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze sentence: %w", err)
	}

	tokens := make([]taggedToken, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, taggedToken{text: tok.Text, tag: tok.Tag})
	}
	tokens = locateTokens(sentence, tokens)

	return &domain.SentenceAnalysis{
		Text:       sentence,
		Entities:   collectEntities(sentence, doc.Entities()),
		NounChunks: nounChunks(sentence, tokens),
	}, nil
}

// collectEntities merges model entities with pattern entities in sentence
// order. Model entities that cannot be located in the sentence follow the
// located ones in model order.
func collectEntities(sentence string, modelEntities []prose.Entity) []domain.Entity {
	var located []span
	var unlocated []domain.Entity
	cursor := 0
	for _, ent := range modelEntities {
		if ent.Text == "" {
			continue
		}
		ent.Label = normalizeLabel(ent.Label)
		if idx := strings.Index(sentence[cursor:], ent.Text); idx != -1 {
			s := span{start: cursor + idx, end: cursor + idx + len(ent.Text), label: ent.Label}
			located = append(located, s)
			cursor = s.end
			continue
		}
		// out of order: accept the first free occurrence anywhere
		if idx := strings.Index(sentence, ent.Text); idx != -1 {
			s := span{start: idx, end: idx + len(ent.Text), label: ent.Label}
			if !overlapsAny(s, located) {
				located = append(located, s)
				continue
			}
		}
		unlocated = append(unlocated, domain.Entity{Text: ent.Text, Label: ent.Label})
	}

	all := append(located, findPatternEntities(sentence, located)...)
	sortSpans(all)

	entities := make([]domain.Entity, 0, len(all)+len(unlocated))
	for _, s := range all {
		entities = append(entities, domain.Entity{Text: sentence[s.start:s.end], Label: s.label})
	}
	return append(entities, unlocated...)
}

// modelLabels maps prose entity labels onto the OntoNotes names used by
// answer extraction and question typing
var modelLabels = map[string]string{
	"ORGANIZATION": "ORG",
	"LOCATION":     "LOC",
	"FACILITY":     "FAC",
	"GSP":          "GPE",
}

func normalizeLabel(label string) string {
	if mapped, ok := modelLabels[label]; ok {
		return mapped
	}
	return label
}

var _ domain.TextAnalyzer = (*ProseAnalyzer)(nil)
