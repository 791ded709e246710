package textutil

import (
	"regexp"
	"sort"
	"strings"
)

const summarySentences = 2

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// Summarize reduces text to roughly maxChars characters. Short text passes
// through unchanged. Longer text is reduced to its highest-scoring sentences;
// when that still overshoots the budget too far, it falls back to truncation
// at a sentence or word boundary. Output is never longer than the input.
func Summarize(text string, maxChars int) string {
	text = CleanHTML(text)
	if text == "" || maxChars <= 0 {
		return ""
	}

	if len([]rune(text)) <= maxChars {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) > summarySentences {
		summary := strings.Join(topSentences(sentences, summarySentences), " ")
		// Accept a moderate overshoot, matching the sentence-extraction
		// contract: whole sentences beat a hard cut.
		if summary != "" && len([]rune(summary)) <= maxChars*3/2 {
			return summary
		}
	}

	return smartTruncate(text, maxChars)
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// topSentences scores sentences by the frequency of their terms across the
// whole text and returns the count highest scoring ones in original order.
func topSentences(sentences []string, count int) []string {
	freq := make(map[string]int)
	for _, s := range sentences {
		for _, w := range tokenize(s) {
			freq[w]++
		}
	}

	type scored struct {
		index int
		score float64
	}

	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		words := tokenize(s)
		if len(words) == 0 {
			continue
		}
		total := 0
		for _, w := range words {
			total += freq[w]
		}
		ranked = append(ranked, scored{index: i, score: float64(total) / float64(len(words))})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].index < ranked[j].index })

	picked := make([]string, 0, len(ranked))
	for _, r := range ranked {
		picked = append(picked, sentences[r.index])
	}
	return picked
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]`)
		if len(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}

// smartTruncate cuts text at the last sentence boundary within the budget,
// falling back to the last word boundary with an ellipsis.
func smartTruncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	excerpt := string(runes[:maxChars])

	if i := strings.LastIndex(excerpt, "."); i > 50 {
		return excerpt[:i+1]
	}

	out := excerpt
	if i := strings.LastIndex(excerpt, " "); i > 0 {
		out = excerpt[:i] + "..."
	}
	if len([]rune(out)) > maxChars {
		out = excerpt
	}
	return out
}
