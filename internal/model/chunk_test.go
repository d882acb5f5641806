package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDStable(t *testing.T) {
	a := ChunkID("Sources/A.swift", "User.greet", KindMethod, 10)
	b := ChunkID("Sources/A.swift", "User.greet", KindMethod, 10)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestChunkIDDistinguishesTuple(t *testing.T) {
	base := ChunkID("a.swift", "name", KindFunction, 1)
	assert.NotEqual(t, base, ChunkID("b.swift", "name", KindFunction, 1))
	assert.NotEqual(t, base, ChunkID("a.swift", "other", KindFunction, 1))
	assert.NotEqual(t, base, ChunkID("a.swift", "name", KindStruct, 1))
	assert.NotEqual(t, base, ChunkID("a.swift", "name", KindFunction, 2))
}

func TestTextChunkIDUsesContentFingerprint(t *testing.T) {
	a := TextChunkID("notes.txt", 1, "first content")
	b := TextChunkID("notes.txt", 1, "second content")
	assert.NotEqual(t, a, b)

	// Only the first 64 characters participate.
	long := strings.Repeat("x", 64)
	assert.Equal(t,
		TextChunkID("notes.txt", 1, long+"tail one"),
		TextChunkID("notes.txt", 1, long+"tail two"))
}

func TestHashContentStable(t *testing.T) {
	assert.Equal(t, HashContent([]byte("same")), HashContent([]byte("same")))
	assert.NotEqual(t, HashContent([]byte("same")), HashContent([]byte("diff")))
	assert.Len(t, HashContent([]byte("same")), 16)
}

func TestQualifiedAndShortName(t *testing.T) {
	c := &Chunk{Symbols: []string{"A.B.method", "method"}}
	assert.Equal(t, "A.B.method", c.QualifiedName())
	assert.Equal(t, "method", c.Name())

	empty := &Chunk{}
	assert.Empty(t, empty.QualifiedName())
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, "swift", LanguageForPath("Sources/A.swift"))
	assert.Equal(t, "typescript", LanguageForPath("web/app.TSX"))
	assert.Equal(t, "markdown", LanguageForPath("README.md"))
	assert.Equal(t, "text", LanguageForPath("LICENSE"))
}
