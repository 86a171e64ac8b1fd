package nlp

import "strings"

// taggedToken is a part-of-speech tagged token with its byte offsets in the
// sentence it came from. start is -1 when the token could not be located.
type taggedToken struct {
	text       string
	tag        string
	start, end int
}

// locateTokens assigns sentence offsets to tokens by scanning forward
func locateTokens(sentence string, tokens []taggedToken) []taggedToken {
	out := make([]taggedToken, len(tokens))
	cursor := 0
	for i, tok := range tokens {
		tok.start, tok.end = -1, -1
		if tok.text != "" {
			if idx := strings.Index(sentence[cursor:], tok.text); idx != -1 {
				tok.start = cursor + idx
				tok.end = tok.start + len(tok.text)
				cursor = tok.end
			}
		}
		out[i] = tok
	}
	return out
}

func isNounTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

func isDeterminerTag(tag string) bool {
	switch tag {
	case "DT", "PDT", "PRP$", "WP$":
		return true
	}
	return false
}

// isModifierTag reports tags that may sit inside a noun phrase before its
// head noun.
func isModifierTag(tag string) bool {
	switch tag {
	case "JJ", "JJR", "JJS", "CD", "POS", "VBN", "VBG":
		return true
	}
	return false
}

// nounChunks returns base noun phrases: an optional determiner, any
// modifiers and nouns, ending at the last noun of the run. Chunk text is cut
// from the sentence so original spacing and punctuation are kept.
func nounChunks(sentence string, tokens []taggedToken) []string {
	var chunks []string
	runStart := -1 // index of the first token of the current run
	lastNoun := -1 // index of the last noun of the current run

	flush := func() {
		if runStart != -1 && lastNoun != -1 {
			from, to := tokens[runStart].start, tokens[lastNoun].end
			if from >= 0 && to > from {
				chunks = append(chunks, sentence[from:to])
			}
		}
		runStart, lastNoun = -1, -1
	}

	for i, tok := range tokens {
		if tok.start < 0 {
			flush()
			continue
		}
		switch {
		case isDeterminerTag(tok.tag):
			// a determiner always opens a new phrase
			flush()
			runStart = i
		case isNounTag(tok.tag):
			if runStart == -1 {
				runStart = i
			}
			lastNoun = i
		case isModifierTag(tok.tag):
			if lastNoun != -1 && tok.tag != "POS" {
				// a modifier after the head noun starts the next phrase
				flush()
			}
			if runStart == -1 {
				runStart = i
			}
		default:
			flush()
		}
	}
	flush()
	return chunks
}
