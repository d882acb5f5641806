package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
)

const swiftSample = `import Foundation

/// A user record.
public struct User: Codable, Equatable {
    /// The unique id.
    public let id: String
    var name: String

    /// Greets the user by name.
    public func greet(name: String) -> String {
        let message = Formatter.capitalize(name)
        return message
    }
}

func topLevel() -> Int {
    let local = 5
    return local
}

extension User: CustomStringConvertible {
    public var description: String { name }
}
`

func parseSwift(t *testing.T, source string) []*model.Chunk {
	t.Helper()
	p := NewSwiftParser()
	chunks, _, err := p.Parse("Sources/App/User.swift", []byte(source), "dddddddddddddddd")
	require.NoError(t, err)
	return chunks
}

func chunkByName(chunks []*model.Chunk, qualified string) *model.Chunk {
	for _, c := range chunks {
		if c.QualifiedName() == qualified {
			return c
		}
	}
	return nil
}

func TestSwiftParserExtractsDeclarations(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	var kinds []model.Kind
	for _, c := range chunks {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, model.KindStruct)
	assert.Contains(t, kinds, model.KindConstant)
	assert.Contains(t, kinds, model.KindVariable)
	assert.Contains(t, kinds, model.KindMethod)
	assert.Contains(t, kinds, model.KindFunction)
	assert.Contains(t, kinds, model.KindExtension)
}

func TestSwiftParserQualifiedNames(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	greet := chunkByName(chunks, "User.greet")
	require.NotNil(t, greet)
	assert.Equal(t, model.KindMethod, greet.Kind)
	assert.Equal(t, []string{"User.greet", "greet"}, greet.Symbols)
	assert.Equal(t, "User > greet", greet.Breadcrumb)

	top := chunkByName(chunks, "topLevel")
	require.NotNil(t, top)
	assert.Equal(t, model.KindFunction, top.Kind)
	assert.Equal(t, []string{"topLevel"}, top.Symbols)
	assert.Empty(t, top.Breadcrumb)
}

func TestSwiftParserConformances(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	user := chunkByName(chunks, "User")
	require.NotNil(t, user)
	assert.Equal(t, []string{"Codable", "Equatable"}, user.Conformances)

	// The extension declares its own conformance.
	var ext *model.Chunk
	for _, c := range chunks {
		if c.Kind == model.KindExtension {
			ext = c
		}
	}
	require.NotNil(t, ext)
	assert.Equal(t, []string{"CustomStringConvertible"}, ext.Conformances)
}

func TestSwiftParserDocComments(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	user := chunkByName(chunks, "User")
	require.NotNil(t, user)
	assert.Equal(t, "A user record.", user.DocComment)

	greet := chunkByName(chunks, "User.greet")
	require.NotNil(t, greet)
	assert.Equal(t, "Greets the user by name.", greet.DocComment)

	top := chunkByName(chunks, "topLevel")
	require.NotNil(t, top)
	assert.Empty(t, top.DocComment)
}

func TestSwiftParserSignatures(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	greet := chunkByName(chunks, "User.greet")
	require.NotNil(t, greet)
	assert.Equal(t, "public func greet(name: String) -> String", greet.Signature)

	user := chunkByName(chunks, "User")
	require.NotNil(t, user)
	assert.True(t, strings.HasPrefix(user.Signature, "public struct User"))
}

func TestSwiftParserReferences(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	greet := chunkByName(chunks, "User.greet")
	require.NotNil(t, greet)
	assert.Contains(t, greet.References, "Formatter")
	assert.Contains(t, greet.References, "String")
	assert.NotContains(t, greet.References, "greet")
}

func TestSwiftParserLocalsNeverChunk(t *testing.T) {
	chunks := parseSwift(t, swiftSample)

	assert.Nil(t, chunkByName(chunks, "local"))
	assert.Nil(t, chunkByName(chunks, "topLevel.local"))
	assert.Nil(t, chunkByName(chunks, "User.greet.message"))
}

func TestSwiftParserLineInvariants(t *testing.T) {
	source := swiftSample
	chunks := parseSwift(t, source)
	lineCount := strings.Count(source, "\n") + 1

	seen := make(map[string]struct{})
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.StartLine, 1)
		assert.LessOrEqual(t, c.StartLine, c.EndLine)
		assert.LessOrEqual(t, c.EndLine, lineCount)
		assert.NotEmpty(t, c.Content)
		assert.Contains(t, source, c.Content, "chunk content must be a substring of the file")

		_, dup := seen[c.ID]
		assert.False(t, dup, "chunk id %s duplicated", c.ID)
		seen[c.ID] = struct{}{}
	}
}

func TestSwiftParserMultiLineSignature(t *testing.T) {
	source := `func configure(
    host: String,
    port: Int
) -> Server {
    return Server(host: host, port: port)
}
`
	chunks := parseSwift(t, source)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 6, chunks[0].EndLine)
	assert.Equal(t, "func configure( host: String, port: Int ) -> Server", chunks[0].Signature)
}

func TestSwiftParserDocSnippets(t *testing.T) {
	source := `/// Coordinates the whole indexing pipeline across parser and stores.
/// Owns the event loop and serializes writes behind a single queue.
struct Coordinator {
}
`
	p := NewSwiftParser()
	chunks, snippets, err := p.Parse("Sources/Coordinator.swift", []byte(source), "eeeeeeeeeeeeeeee")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	require.Len(t, snippets, 1)
	assert.Equal(t, model.SnippetDocumentation, snippets[0].Kind)
	assert.Equal(t, chunks[0].ID, snippets[0].ChunkID)
	assert.Contains(t, snippets[0].Content, "indexing pipeline")
}
