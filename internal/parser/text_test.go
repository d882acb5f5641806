package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
)

func TestTextChunkerSmallFileSingleChunk(t *testing.T) {
	c := NewTextChunker(100, 20)
	chunks := c.Chunk("notes.txt", []byte("short file\nwith two lines"), "aaaaaaaaaaaaaaaa")

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, model.KindDocument, chunks[0].Kind)
}

func TestTextChunkerSplitsAtLineBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("line with some padding text\n")
	}
	content := b.String()

	c := NewTextChunker(200, 50)
	chunks := c.Chunk("big.txt", []byte(content), "aaaaaaaaaaaaaaaa")

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 200+50)
		assert.NotEmpty(t, chunk.Content)
		// Chunks never split mid-line.
		for _, line := range strings.Split(chunk.Content, "\n") {
			assert.True(t, line == "" || strings.HasPrefix(line, "line with"))
		}
	}
}

func TestTextChunkerOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("0123456789\n")
	}

	c := NewTextChunker(100, 30)
	chunks := c.Chunk("big.txt", []byte(b.String()), "aaaaaaaaaaaaaaaa")
	require.Greater(t, len(chunks), 1)

	// Each later chunk starts with tail content of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		head := strings.SplitN(chunks[i].Content, "\n", 2)[0]
		assert.True(t, strings.HasSuffix(prev, head) || strings.Contains(prev, head),
			"chunk %d should start with overlap from chunk %d", i, i-1)
		assert.Less(t, chunks[i].StartLine, chunks[i].EndLine)
	}
}

func TestTextChunkerUniqueIDs(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("repeated content line\n")
	}

	c := NewTextChunker(120, 0)
	chunks := c.Chunk("big.txt", []byte(b.String()), "aaaaaaaaaaaaaaaa")

	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		_, dup := seen[chunk.ID]
		assert.False(t, dup, "duplicate id at start line %d", chunk.StartLine)
		seen[chunk.ID] = struct{}{}
	}
}
