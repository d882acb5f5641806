// Package parser turns source files into chunk lists with the metadata the
// ranker depends on. Routing is table-driven by file extension: a Swift
// declaration extractor, a tree-sitter parser for C-family languages, a
// pattern chunker for JSON/YAML, a Markdown sectioner, and a plain-text
// fallback for everything else.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/model"
)

type resultKind int

const (
	resultSuccess resultKind = iota
	resultSuccessWithSnippets
	resultFailure
)

// Result is the tagged outcome of parsing one file. Accessors return empty
// collections for non-matching variants, so consumers never branch on the
// variant directly.
type Result struct {
	kind     resultKind
	chunks   []*model.Chunk
	snippets []*model.Snippet
	err      *kerrors.Error
}

// Success wraps a chunk-only parse.
func Success(chunks []*model.Chunk) Result {
	return Result{kind: resultSuccess, chunks: chunks}
}

// SuccessWithSnippets wraps a parse that also produced documentation snippets.
func SuccessWithSnippets(chunks []*model.Chunk, snippets []*model.Snippet) Result {
	return Result{kind: resultSuccessWithSnippets, chunks: chunks, snippets: snippets}
}

// Failure wraps a parse error.
func Failure(err *kerrors.Error) Result {
	return Result{kind: resultFailure, err: err}
}

// Chunks returns the parsed chunks, or an empty slice on failure.
func (r Result) Chunks() []*model.Chunk {
	if r.kind == resultFailure || r.chunks == nil {
		return []*model.Chunk{}
	}
	return r.chunks
}

// Snippets returns the parsed snippets, or an empty slice when none exist.
func (r Result) Snippets() []*model.Snippet {
	if r.kind != resultSuccessWithSnippets || r.snippets == nil {
		return []*model.Snippet{}
	}
	return r.snippets
}

// Err returns the parse error, or nil on success.
func (r Result) Err() *kerrors.Error {
	if r.kind != resultFailure {
		return nil
	}
	return r.err
}

// Options configures the plain-text fallback chunker.
type Options struct {
	// MaxChunkSize is the character budget per text chunk (default: 2048).
	MaxChunkSize int

	// OverlapSize is the number of tail characters repeated at the head of
	// the next text chunk (default: 256).
	OverlapSize int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize: 2048,
		OverlapSize:  256,
	}
}

// Parser routes files to the extractor for their extension.
type Parser struct {
	swift    *SwiftParser
	clike    *TreeSitterParser
	data     *DataParser
	markdown *MarkdownParser
	text     *TextChunker
}

// New creates a parser with default options.
func New() *Parser {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a parser with custom text-chunking options.
func NewWithOptions(opts Options) *Parser {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultOptions().MaxChunkSize
	}
	if opts.OverlapSize < 0 || opts.OverlapSize >= opts.MaxChunkSize {
		opts.OverlapSize = DefaultOptions().OverlapSize
	}
	return &Parser{
		swift:    NewSwiftParser(),
		clike:    NewTreeSitterParser(),
		data:     NewDataParser(),
		markdown: NewMarkdownParser(),
		text:     NewTextChunker(opts.MaxChunkSize, opts.OverlapSize),
	}
}

// Parse extracts chunks (and snippets, for documentation formats) from one
// file. Empty content is a parse failure; a catastrophic extractor error
// degrades rather than surfacing: Swift to a single document chunk, C-family
// sources to plain-text chunking.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) Result {
	if len(content) == 0 || strings.TrimSpace(string(content)) == "" {
		return Failure(kerrors.ParseError(kerrors.CodeEmptyContent, "file has no content", path))
	}

	fileHash := model.HashContent(content)
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".swift":
		chunks, snippets, err := p.swift.Parse(path, content, fileHash)
		if err != nil {
			return Success([]*model.Chunk{degradedChunk(path, content, fileHash)})
		}
		if len(chunks) == 0 {
			chunks = p.text.Chunk(path, content, fileHash)
		}
		return SuccessWithSnippets(chunks, snippets)

	case ".c", ".h", ".cpp", ".cc", ".hpp", ".m", ".mm", ".js", ".jsx", ".ts", ".tsx":
		chunks, err := p.clike.Parse(ctx, path, content, fileHash)
		if err != nil || len(chunks) == 0 {
			return Success(p.text.Chunk(path, content, fileHash))
		}
		return Success(chunks)

	case ".json", ".yaml", ".yml":
		chunks := p.data.Parse(path, content, fileHash)
		if len(chunks) == 0 {
			return Success(p.text.Chunk(path, content, fileHash))
		}
		return Success(chunks)

	case ".md", ".mdx", ".markdown":
		chunks, snippets := p.markdown.Parse(path, content, fileHash)
		return SuccessWithSnippets(chunks, snippets)

	default:
		return Success(p.text.Chunk(path, content, fileHash))
	}
}

// Close releases extractor resources (tree-sitter parsers).
func (p *Parser) Close() {
	p.clike.Close()
}

// degradedChunk wraps a whole file as a single document chunk when structured
// extraction failed catastrophically.
func degradedChunk(path string, content []byte, fileHash string) *model.Chunk {
	text := string(content)
	lines := strings.Count(text, "\n") + 1
	return &model.Chunk{
		ID:        model.TextChunkID(path, 1, text),
		Path:      path,
		Content:   text,
		StartLine: 1,
		EndLine:   lines,
		Kind:      model.KindDocument,
		FileHash:  fileHash,
		Language:  model.LanguageForPath(path),
	}
}
