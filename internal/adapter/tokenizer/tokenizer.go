// Package tokenizer bounds model inputs to a token budget before inference.
package tokenizer

import (
	"fmt"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer truncates text to at most maxTokens tokens
type Tokenizer interface {
	Truncate(text string, maxTokens int) string
	Count(text string) int
}

// BPETokenizer counts tokens with a tiktoken byte-pair encoding
type BPETokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewBPETokenizer loads the named encoding (e.g. "cl100k_base"). Loading
// may need network access the first time an encoding is used.
func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &BPETokenizer{enc: enc}, nil
}

func (t *BPETokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *BPETokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// WhitespaceTokenizer treats every run of non-space characters as a token.
// It is the fallback when no BPE encoding can be loaded.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Count(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// Truncate keeps the first maxTokens words with their original spacing
func (WhitespaceTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	count := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord && count == maxTokens {
				return text[:i]
			}
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return text
}

// New returns a BPE tokenizer for encoding, or the whitespace fallback when
// the encoding cannot be loaded. The returned error reports the fallback.
func New(encoding string) (Tokenizer, error) {
	bpe, err := NewBPETokenizer(encoding)
	if err != nil {
		return WhitespaceTokenizer{}, err
	}
	return bpe, nil
}
