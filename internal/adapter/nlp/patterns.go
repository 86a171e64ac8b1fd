package nlp

import (
	"regexp"
	"sort"
)

// span is an annotated byte range of a sentence
type span struct {
	start, end int
	label      string
}

var monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?`

type pattern struct {
	label string
	re    *regexp.Regexp
}

// Patterns are tried in order; an earlier match wins an overlapping range.
var entityPatterns = []pattern{
	{"DATE", regexp.MustCompile(`\b` + monthNames + `\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?\b`)},
	{"DATE", regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthNames + `(?:,?\s+\d{4})?\b`)},
	{"DATE", regexp.MustCompile(`\b` + monthNames + `\s+\d{4}\b`)},
	{"DATE", regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)},
	{"DATE", regexp.MustCompile(`\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b`)},
	{"DATE", regexp.MustCompile(`(?i)\b(?:the\s+)?\d{1,2}(?:st|nd|rd|th)\s+century\b`)},
	{"DATE", regexp.MustCompile(`\b(?:1[0-9]{3}|20[0-9]{2})s?\b`)},
	{"TIME", regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s?[ap]\.?m\b\.?)?`)},
	{"TIME", regexp.MustCompile(`(?i)\b\d{1,2}\s?[ap]\.?m\b\.?`)},
	{"CARDINAL", regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b|\b\d+(?:\.\d+)?\b`)},
	{"CARDINAL", regexp.MustCompile(`(?i)\b(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion)(?:[\s-]+(?:one|two|three|four|five|six|seven|eight|nine|hundred|thousand|million|billion))*\b`)},
}

// findPatternEntities annotates dates, times and numbers in text, skipping
// ranges already claimed by taken.
func findPatternEntities(text string, taken []span) []span {
	claimed := append([]span(nil), taken...)
	var found []span
	for _, p := range entityPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			s := span{start: loc[0], end: loc[1], label: p.label}
			if overlapsAny(s, claimed) {
				continue
			}
			claimed = append(claimed, s)
			found = append(found, s)
		}
	}
	sortSpans(found)
	return found
}

func overlapsAny(s span, others []span) bool {
	for _, o := range others {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

func sortSpans(spans []span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
}
