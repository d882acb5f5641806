package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/model"
)

func TestParserEmptyContentFails(t *testing.T) {
	p := New()
	defer p.Close()

	for _, content := range [][]byte{nil, {}, []byte("   \n\t\n")} {
		result := p.Parse(context.Background(), "empty.swift", content)
		err := result.Err()
		require.NotNil(t, err)
		assert.Equal(t, kerrors.CodeEmptyContent, err.Code)
		assert.Equal(t, "empty.swift", err.Path)
		assert.Empty(t, result.Chunks())
		assert.Empty(t, result.Snippets())
	}
}

func TestParserRoutesSwift(t *testing.T) {
	p := New()
	defer p.Close()

	result := p.Parse(context.Background(), "a.swift", []byte("struct S {}\n"))
	require.Nil(t, result.Err())
	require.NotEmpty(t, result.Chunks())
	assert.Equal(t, model.KindStruct, result.Chunks()[0].Kind)
	assert.Equal(t, "swift", result.Chunks()[0].Language)
}

func TestParserRoutesMarkdown(t *testing.T) {
	p := New()
	defer p.Close()

	result := p.Parse(context.Background(), "README.md", []byte("# Title\n\nBody text.\n"))
	require.Nil(t, result.Err())
	require.NotEmpty(t, result.Chunks())
	assert.Equal(t, model.KindSection, result.Chunks()[0].Kind)
	assert.NotEmpty(t, result.Snippets())
}

func TestParserRoutesYAML(t *testing.T) {
	p := New()
	defer p.Close()

	source := "server:\n  port: 8080\nlogging:\n  level: info\n"
	result := p.Parse(context.Background(), "config.yaml", []byte(source))
	require.Nil(t, result.Err())

	chunks := result.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"server"}, chunks[0].Symbols)
	assert.Equal(t, []string{"logging"}, chunks[1].Symbols)
}

func TestParserUnknownExtensionFallsBackToText(t *testing.T) {
	p := New()
	defer p.Close()

	result := p.Parse(context.Background(), "LICENSE", []byte("Permission is granted.\n"))
	require.Nil(t, result.Err())
	require.Len(t, result.Chunks(), 1)
	assert.Equal(t, model.KindDocument, result.Chunks()[0].Kind)
	assert.Equal(t, "text", result.Chunks()[0].Language)
}

func TestParserFileHashStable(t *testing.T) {
	p := New()
	defer p.Close()

	content := []byte("struct S {}\n")
	first := p.Parse(context.Background(), "a.swift", content)
	second := p.Parse(context.Background(), "a.swift", content)

	require.NotEmpty(t, first.Chunks())
	require.NotEmpty(t, second.Chunks())
	assert.Equal(t, first.Chunks()[0].FileHash, second.Chunks()[0].FileHash)
	assert.Equal(t, first.Chunks()[0].ID, second.Chunks()[0].ID)
}

func TestDataParserJSON(t *testing.T) {
	source := `{
  "name": "kestrel",
  "dependencies": {
    "left": "1.0.0"
  }
}`
	p := NewDataParser()
	chunks := p.Parse("package.json", []byte(source), "aaaaaaaaaaaaaaaa")

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"name"}, chunks[0].Symbols)
	assert.Equal(t, []string{"dependencies"}, chunks[1].Symbols)
	assert.Equal(t, model.KindSection, chunks[0].Kind)
}
