// Package chunking implements the pluggable text-splitting strategies used
// by the ingestion pipeline: sentence-splitter (per-page, title-prefixed,
// sentence-boundary-aware) and word-overlap (cross-page, fixed windows).
package chunking

import "errors"

// ErrNonStringChunk is returned by a Strategy if it would otherwise emit a
// chunk body that isn't a plain string (e.g. an unjoined slice of
// sentence fragments). Go's type system makes this unreachable in
// practice since Chunk.Text is statically a string, but the sentinel is
// kept so strategies that internally manipulate []string pieces have an
// explicit, documented failure mode instead of silently joining garbage.
var ErrNonStringChunk = errors.New("chunking: strategy would emit a non-string chunk body")

// Chunk is a single unit of chunked text tagged with its source page.
type Chunk struct {
	Page int
	Text string
}

// Strategy splits a book's per-page text into a sequence of chunks.
// pages maps 1-based source page number to that page's full text.
type Strategy interface {
	Chunk(pages map[int]string, maxTokens int, title string) ([]Chunk, error)
}

// SkipFirstPage returns a new map holding every page except page 1 of a
// multi-page document; the input map is not modified. Single-page
// documents are returned unchanged, and original page numbers of the
// remaining pages are never renumbered.
func SkipFirstPage(pages map[int]string) map[int]string {
	if len(pages) <= 1 {
		return pages
	}
	out := make(map[int]string, len(pages)-1)
	for page, text := range pages {
		if page == 1 {
			continue
		}
		out[page] = text
	}
	return out
}

func sortedPageNumbers(pages map[int]string) []int {
	nums := make([]int, 0, len(pages))
	for p := range pages {
		nums = append(nums, p)
	}
	// insertion sort is fine: page counts are in the hundreds at most
	for i := 1; i < len(nums); i++ {
		for j := i; j > 0 && nums[j-1] > nums[j]; j-- {
			nums[j-1], nums[j] = nums[j], nums[j-1]
		}
	}
	return nums
}

func wrapTitle(title, body string) string {
	return "##" + title + "##" + body
}
