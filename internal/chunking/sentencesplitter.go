package chunking

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches one or more sentence-terminating punctuation
// marks followed by whitespace or end of string.
var sentenceBoundary = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// SentenceSplitter greedily accumulates sentences into a chunk while
// word_count(chunk)+word_count(next) <= maxTokens, emitting a
// title-prefixed chunk on overflow. A sentence that alone exceeds
// maxTokens is hard-split at word boundaries (no overlap). Each page is
// processed independently; chunks never span a page boundary.
type SentenceSplitter struct{}

// Chunk implements Strategy.
func (SentenceSplitter) Chunk(pages map[int]string, maxTokens int, title string) ([]Chunk, error) {
	if maxTokens <= 0 {
		maxTokens = 500
	}

	var out []Chunk
	for _, page := range sortedPageNumbers(pages) {
		sentences := splitSentences(pages[page])

		var current []string
		currentWords := 0

		flush := func() {
			if len(current) == 0 {
				return
			}
			body := strings.Join(current, " ")
			if body != "" {
				out = append(out, Chunk{Page: page, Text: wrapTitle(title, body)})
			}
			current = nil
			currentWords = 0
		}

		for _, sentence := range sentences {
			words := strings.Fields(sentence)
			if len(words) == 0 {
				continue
			}

			if len(words) > maxTokens {
				// A single sentence that alone overflows maxTokens is
				// hard-split at word boundaries; overlap does not apply.
				flush()
				for i := 0; i < len(words); i += maxTokens {
					end := i + maxTokens
					if end > len(words) {
						end = len(words)
					}
					piece := strings.Join(words[i:end], " ")
					out = append(out, Chunk{Page: page, Text: wrapTitle(title, piece)})
				}
				continue
			}

			if currentWords > 0 && currentWords+len(words) > maxTokens {
				flush()
			}
			current = append(current, sentence)
			currentWords += len(words)
		}
		flush()
	}
	return out, nil
}

// splitSentences splits text at '.', '!', '?' followed by whitespace (or
// end of string), trimming surrounding whitespace from each sentence.
func splitSentences(text string) []string {
	matches := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return nil
	}

	var sentences []string
	start := 0
	for _, m := range matches {
		sentence := strings.TrimSpace(text[start:m[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = m[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
