package chunking

import "strings"

const (
	wordOverlapWindowSize = 400
	wordOverlapStride     = 350 // window size minus the 50-word overlap
)

// WordOverlap operates on the full concatenated document text (pages
// joined in page order, space-separated) and emits fixed 400-word
// windows with a 350-word stride, i.e. a 50-word overlap between
// consecutive windows. maxTokens is ignored: this is a fixed-geometry
// windowing strategy. No title prefix is added, and chunks may span a
// page boundary; each window is tagged with the page containing its
// first word.
type WordOverlap struct{}

type placedWord struct {
	word string
	page int
}

// Chunk implements Strategy.
func (WordOverlap) Chunk(pages map[int]string, _ int, _ string) ([]Chunk, error) {
	var words []placedWord
	for _, page := range sortedPageNumbers(pages) {
		for _, w := range strings.Fields(pages[page]) {
			words = append(words, placedWord{word: w, page: page})
		}
	}
	if len(words) == 0 {
		return nil, nil
	}

	var out []Chunk
	for start := 0; start < len(words); start += wordOverlapStride {
		end := start + wordOverlapWindowSize
		if end > len(words) {
			end = len(words)
		}
		parts := make([]string, 0, end-start)
		for _, w := range words[start:end] {
			parts = append(parts, w.word)
		}
		out = append(out, Chunk{Page: words[start].page, Text: strings.Join(parts, " ")})
		if end == len(words) {
			break
		}
	}
	return out, nil
}
