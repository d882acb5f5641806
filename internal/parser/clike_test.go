package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
)

const tsSample = `interface Store {
  get(id: string): string;
}

export class MemoryStore implements Store {
  get(id: string): string {
    return this.items[id];
  }
}

function helper(x: number): number {
  return x * 2;
}
`

func parseTS(t *testing.T, source string) []*model.Chunk {
	t.Helper()
	p := NewTreeSitterParser()
	t.Cleanup(p.Close)
	chunks, err := p.Parse(context.Background(), "src/store.ts", []byte(source), "2222222222222222")
	require.NoError(t, err)
	return chunks
}

func TestTreeSitterTypeScript(t *testing.T) {
	chunks := parseTS(t, tsSample)

	iface := chunkByName(chunks, "Store")
	require.NotNil(t, iface)
	assert.Equal(t, model.KindInterface, iface.Kind)

	cls := chunkByName(chunks, "MemoryStore")
	require.NotNil(t, cls)
	assert.Equal(t, model.KindClass, cls.Kind)
	assert.Contains(t, cls.Conformances, "Store")

	helper := chunkByName(chunks, "helper")
	require.NotNil(t, helper)
	assert.Equal(t, model.KindFunction, helper.Kind)
}

func TestTreeSitterNestedMethod(t *testing.T) {
	chunks := parseTS(t, tsSample)

	method := chunkByName(chunks, "MemoryStore.get")
	require.NotNil(t, method)
	assert.Equal(t, model.KindMethod, method.Kind)
	assert.Equal(t, "MemoryStore > get", method.Breadcrumb)
	assert.Equal(t, []string{"MemoryStore.get", "get"}, method.Symbols)
}

func TestTreeSitterLineNumbers(t *testing.T) {
	chunks := parseTS(t, tsSample)

	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.StartLine, 1)
		assert.LessOrEqual(t, c.StartLine, c.EndLine)
		assert.NotEmpty(t, c.Content)
	}

	iface := chunkByName(chunks, "Store")
	require.NotNil(t, iface)
	assert.Equal(t, 1, iface.StartLine)
	assert.Equal(t, 3, iface.EndLine)
}

func TestTreeSitterCFunctions(t *testing.T) {
	source := "static int add(int a, int b) {\n    return a + b;\n}\n"
	p := NewTreeSitterParser()
	t.Cleanup(p.Close)

	chunks, err := p.Parse(context.Background(), "src/math.c", []byte(source), "3333333333333333")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "add", chunks[0].QualifiedName())
	assert.Equal(t, model.KindFunction, chunks[0].Kind)
}
