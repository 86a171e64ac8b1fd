package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"quiz-pipeline/internal/domain"
)

const instructTranslationPrompt = `Translate every string of the JSON array below into the language with ISO 639-1 code "%s".
Respond with ONLY a JSON object of the form {"translations": ["...", "..."]} containing exactly %d strings, in the same order as the input.

Input:
%s`

const translationSchema = `{
	"type": "object",
	"required": ["translations"],
	"properties": {
		"translations": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

// Translator implements domain.Translator. Seq2seq models are called once
// per text; instruct models receive the whole batch as one JSON array.
type Translator struct {
	client    *Seq2SeqClient
	style     string
	maxTokens int
	// targetToken prefixes each input with ">>lang<< ", the target selector
	// of multilingual Marian models.
	targetToken bool
	schema      *gojsonschema.Schema
}

func NewTranslator(client *Seq2SeqClient, style string, maxTokens int, targetToken bool) (*Translator, error) {
	if err := checkStyle(style); err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(translationSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile translation schema: %w", err)
	}
	return &Translator{
		client:      client,
		style:       style,
		maxTokens:   maxTokens,
		targetToken: targetToken,
		schema:      schema,
	}, nil
}

// TargetPrefix is the target-language selector for multilingual models
func TargetPrefix(lang string) string {
	return ">>" + lang + "<< "
}

func (t *Translator) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if t.style == PromptStyleInstruct {
		return t.translateBatch(ctx, texts, targetLang)
	}

	out := make([]string, 0, len(texts))
	for i, text := range texts {
		input := t.client.Truncate(text, t.maxTokens)
		if t.targetToken {
			input = TargetPrefix(targetLang) + input
		}
		translated, err := t.client.Generate(ctx, input, GenerationParams{MaxNewTokens: t.maxTokens})
		if err != nil {
			return nil, fmt.Errorf("failed to translate text %d of %d: %w", i+1, len(texts), err)
		}
		out = append(out, translated)
	}
	return out, nil
}

func (t *Translator) translateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	truncated := make([]string, len(texts))
	for i, text := range texts {
		truncated[i] = t.client.Truncate(text, t.maxTokens)
	}
	payload, err := json.Marshal(truncated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode translation batch: %w", err)
	}

	raw, err := t.client.Generate(ctx, fmt.Sprintf(instructTranslationPrompt, targetLang, len(texts), payload), GenerationParams{})
	if err != nil {
		return nil, err
	}
	return t.parseBatch(raw, len(texts))
}

func (t *Translator) parseBatch(raw string, want int) ([]string, error) {
	doc, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in translation response: %s", raw)
	}

	result, err := t.schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate translation response: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("translation response does not match schema: %v", msgs)
	}

	var resp struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation response: %w", err)
	}
	if len(resp.Translations) != want {
		return nil, fmt.Errorf("translation response has %d entries, want %d", len(resp.Translations), want)
	}
	return resp.Translations, nil
}

var _ domain.Translator = (*Translator)(nil)
