package parser

import (
	"strings"

	"github.com/kestrelhq/kestrel/internal/model"
)

// TextChunker is the plain-text fallback: line-boundary chunking with a fixed
// character budget and tail overlap between consecutive chunks.
type TextChunker struct {
	maxChunkSize int
	overlapSize  int
}

// NewTextChunker creates a text chunker with the given limits.
func NewTextChunker(maxChunkSize, overlapSize int) *TextChunker {
	return &TextChunker{maxChunkSize: maxChunkSize, overlapSize: overlapSize}
}

// Chunk splits content at line boundaries into chunks of at most maxChunkSize
// characters. A small file becomes a single chunk. Each subsequent chunk
// starts with overlap taken from the tail of the previous chunk, aligned to
// the last newline inside the overlap window when possible.
func (t *TextChunker) Chunk(path string, content []byte, fileHash string) []*model.Chunk {
	text := string(content)
	language := model.LanguageForPath(path)

	if len(text) <= t.maxChunkSize {
		return []*model.Chunk{t.makeChunk(path, text, 1, fileHash, language)}
	}

	lines := strings.Split(text, "\n")
	var chunks []*model.Chunk

	var current strings.Builder
	startLine := 1
	lineNo := 1

	for _, line := range lines {
		lineLen := len(line) + 1
		if current.Len() > 0 && current.Len()+lineLen > t.maxChunkSize {
			body := strings.TrimRight(current.String(), "\n")
			chunks = append(chunks, t.makeChunk(path, body, startLine, fileHash, language))

			overlap, overlapLines := t.tailOverlap(body)
			current.Reset()
			if overlap != "" {
				current.WriteString(overlap)
				current.WriteString("\n")
			}
			startLine = lineNo - overlapLines
		}
		current.WriteString(line)
		current.WriteString("\n")
		lineNo++
	}

	if strings.TrimSpace(current.String()) != "" {
		body := strings.TrimRight(current.String(), "\n")
		chunks = append(chunks, t.makeChunk(path, body, startLine, fileHash, language))
	}

	return chunks
}

// tailOverlap returns up to overlapSize characters from the tail of body,
// preferring to start just after the last newline inside the window, and the
// number of full lines the overlap spans.
func (t *TextChunker) tailOverlap(body string) (string, int) {
	if t.overlapSize <= 0 || len(body) == 0 {
		return "", 0
	}
	start := len(body) - t.overlapSize
	if start < 0 {
		start = 0
	}
	window := body[start:]
	if idx := strings.LastIndex(window, "\n"); idx >= 0 && idx+1 < len(window) {
		window = window[idx+1:]
	}
	return window, strings.Count(window, "\n") + 1
}

func (t *TextChunker) makeChunk(path, content string, startLine int, fileHash, language string) *model.Chunk {
	endLine := startLine + strings.Count(content, "\n")
	return &model.Chunk{
		ID:        model.TextChunkID(path, startLine, content),
		Path:      path,
		Content:   content,
		StartLine: startLine,
		EndLine:   endLine,
		Kind:      model.KindDocument,
		FileHash:  fileHash,
		Language:  language,
	}
}
