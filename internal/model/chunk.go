// Package model defines the core data types shared by the stores, the parser,
// and the search engine: chunks, snippets, and their identifiers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the semantic tag of a chunk.
type Kind string

const (
	KindFunction      Kind = "function"
	KindMethod        Kind = "method"
	KindClass         Kind = "class"
	KindStruct        Kind = "struct"
	KindEnum          Kind = "enum"
	KindProtocol      Kind = "protocol"
	KindExtension     Kind = "extension"
	KindActor         Kind = "actor"
	KindMacro         Kind = "macro"
	KindInitializer   Kind = "initializer"
	KindDeinitializer Kind = "deinitializer"
	KindSubscript     Kind = "subscript"
	KindTypealias     Kind = "typealias"
	KindVariable      Kind = "variable"
	KindConstant      Kind = "constant"
	KindNamespace     Kind = "namespace"
	KindInterface     Kind = "interface"
	KindDocument      Kind = "document"
	KindSection       Kind = "section"
	KindUnknown       Kind = "unknown"
)

// Chunk is the unit of retrieval: a syntactically bounded fragment of a source
// file together with the metadata the ranker depends on.
type Chunk struct {
	ID           string   // stable, derived from path/name/kind/line
	Path         string   // source file path, matched as-is by the glob filter
	Content      string   // raw source text of the unit
	StartLine    int      // 1-based, inclusive
	EndLine      int      // 1-based, inclusive
	Kind         Kind     // semantic tag
	Symbols      []string // declared names; Symbols[0] is the qualified name
	References   []string // names referenced from the body
	Conformances []string // protocol / superclass names
	FileHash     string   // 16-hex content hash of the source file at parse time
	DocComment   string   // leading documentation comment, markers stripped
	Signature    string   // single-line declaration signature
	Breadcrumb   string   // "A > B > name" hierarchy path
	Language     string   // language tag from the file extension
}

// QualifiedName returns the chunk's primary declared name, or "" for chunks
// without symbols (document, text fallback).
func (c *Chunk) QualifiedName() string {
	if len(c.Symbols) == 0 {
		return ""
	}
	return c.Symbols[0]
}

// Name returns the short (unqualified) name of the chunk.
func (c *Chunk) Name() string {
	q := c.QualifiedName()
	if idx := strings.LastIndex(q, "."); idx >= 0 {
		return q[idx+1:]
	}
	return q
}

// SnippetKind distinguishes documentation snippet sources.
type SnippetKind string

const (
	SnippetMarkdownSection SnippetKind = "markdownSection"
	SnippetDocumentation   SnippetKind = "documentation"
)

// Snippet is an independently searchable documentation fragment, emitted
// alongside chunks by the Markdown sectioner and the doc-comment extractor.
type Snippet struct {
	ID         string
	Path       string
	Content    string
	StartLine  int
	EndLine    int
	Breadcrumb string
	Language   string
	ChunkID    string // owning chunk, if any
	Kind       SnippetKind
	FileHash   string
}

// hashHex16 returns the first 16 hex characters of SHA-256 over s.
func hashHex16(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkID derives the stable identifier for an AST-extracted chunk.
// The tuple (path, qualifiedName, kind, startLine) uniquely determines the id.
func ChunkID(path, qualifiedName string, kind Kind, startLine int) string {
	return hashHex16(fmt.Sprintf("%s:%s:%s:%d", path, qualifiedName, kind, startLine))
}

// textFingerprintLen bounds the content prefix used for text chunk ids.
const textFingerprintLen = 64

// TextChunkID derives the identifier for a plain-text chunk, which has no
// qualified name. A content fingerprint keeps ids distinct when line numbers
// collide across rewrites.
func TextChunkID(path string, startLine int, content string) string {
	prefix := content
	if len(prefix) > textFingerprintLen {
		prefix = prefix[:textFingerprintLen]
	}
	return hashHex16(fmt.Sprintf("%s:%d:%s", path, startLine, hashHex16(prefix)))
}

// SnippetID derives the identifier for a snippet.
func SnippetID(path, breadcrumb string, startLine int) string {
	return hashHex16(fmt.Sprintf("%s:%s:%d", path, breadcrumb, startLine))
}

// HashContent returns the 16-hex-char file hash recorded on every chunk.
// Identical byte contents always produce the same hash.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// languageByExtension maps file extensions to documented language tags.
var languageByExtension = map[string]string{
	".swift": "swift",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".m":     "objc",
	".mm":    "objc",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".md":    "markdown",
	".mdx":   "markdown",
}

// LanguageForPath returns the language tag for a file path, or "text" for
// unknown extensions.
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "text"
}
