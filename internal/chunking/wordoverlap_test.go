package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordsList(n int, prefix string) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestWordOverlap_NoTitlePrefix(t *testing.T) {
	pages := map[int]string{1: "alpha beta gamma"}
	chunks, err := WordOverlap{}.Chunk(pages, 0, "ignored-title")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.False(t, strings.HasPrefix(chunks[0].Text, "##"))
}

func TestWordOverlap_50WordOverlapBetweenConsecutiveWindows(t *testing.T) {
	words := wordsList(900, "w")
	pages := map[int]string{1: strings.Join(words, " ")}

	chunks, err := WordOverlap{}.Chunk(pages, 0, "")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	firstWords := strings.Fields(chunks[0].Text)
	secondWords := strings.Fields(chunks[1].Text)
	require.Len(t, firstWords, 400)

	overlap := firstWords[350:400]
	assert.Equal(t, overlap, secondWords[:50])
}

func TestWordOverlap_SourcesPageFromFirstWordOfWindow(t *testing.T) {
	pages := map[int]string{
		2: strings.Join(wordsList(400, "a"), " "),
		3: strings.Join(wordsList(400, "b"), " "),
	}
	chunks, err := WordOverlap{}.Chunk(pages, 0, "")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 2, chunks[0].Page)

	var sawPage3 bool
	for _, c := range chunks {
		if c.Page == 3 {
			sawPage3 = true
		}
	}
	assert.True(t, sawPage3)
}

func TestWordOverlap_LastWindowMayBeShorter(t *testing.T) {
	pages := map[int]string{1: strings.Join(wordsList(420, "w"), " ")}
	chunks, err := WordOverlap{}.Chunk(pages, 0, "")
	require.NoError(t, err)
	last := chunks[len(chunks)-1]
	assert.Less(t, len(strings.Fields(last.Text)), 400)
}
