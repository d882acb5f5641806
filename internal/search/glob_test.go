package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobMatcher(t *testing.T) {
	g := NewGlobMatcher()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// * stays within a component.
		{"Sources/*.swift", "Sources/A.swift", true},
		{"Sources/*.swift", "Sources/Sub/A.swift", false},

		// ** crosses separators.
		{"Sources/**", "Sources/Sub/A.swift", true},
		{"**/*.swift", "Sources/Sub/A.swift", true},

		// Leading **/ also matches zero components.
		{"**/A.swift", "A.swift", true},
		{"**/A.swift", "deep/nested/A.swift", true},

		// ? matches one character.
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file12.txt", false},

		// . is literal.
		{"a.swift", "aXswift", false},

		// Patterns are anchored.
		{"Sources/*.swift", "prefix/Sources/A.swift", false},
		{"Sources", "Sources/A.swift", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Match(tt.pattern, tt.path),
			"pattern %q path %q", tt.pattern, tt.path)
	}
}

func TestGlobMatcherEmptyPattern(t *testing.T) {
	g := NewGlobMatcher()
	assert.True(t, g.Match("", "anything/at/all"))
}

func TestGlobMatcherMatchAny(t *testing.T) {
	g := NewGlobMatcher()
	patterns := []string{"**/node_modules/**", "**/*.min.js"}

	assert.True(t, g.MatchAny(patterns, "web/node_modules/pkg/index.js"))
	assert.True(t, g.MatchAny(patterns, "dist/app.min.js"))
	assert.False(t, g.MatchAny(patterns, "src/app.js"))
}

func TestGlobMatcherCacheReuse(t *testing.T) {
	g := NewGlobMatcher()

	// Same pattern twice exercises the cache path.
	assert.True(t, g.Match("**/*.go", "a/b/c.go"))
	assert.True(t, g.Match("**/*.go", "d.go"))
	assert.Equal(t, 1, g.cache.Len())
}
