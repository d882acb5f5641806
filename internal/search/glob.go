package search

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// globCacheSize bounds the compiled-pattern cache.
const globCacheSize = 256

// GlobMatcher matches paths against glob patterns, caching the compiled
// regexps. Syntax: `*` matches within a path component, `**` crosses
// separators, `**/` also matches zero leading components, `?` matches a
// single character, `.` is literal. Patterns are anchored.
type GlobMatcher struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

// NewGlobMatcher creates a matcher with an empty cache.
func NewGlobMatcher() *GlobMatcher {
	cache, _ := lru.New[string, *regexp.Regexp](globCacheSize)
	return &GlobMatcher{cache: cache}
}

// Match reports whether path matches pattern. An empty pattern matches
// everything; an uncompilable pattern matches nothing.
func (g *GlobMatcher) Match(pattern, path string) bool {
	if pattern == "" {
		return true
	}
	re, err := g.compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// MatchAny reports whether path matches at least one pattern.
func (g *GlobMatcher) MatchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if g.Match(pattern, path) {
			return true
		}
	}
	return false
}

func (g *GlobMatcher) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := g.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(globToRegex(pattern))
	if err != nil {
		return nil, err
	}
	g.cache.Add(pattern, re)
	return re, nil
}

// globToRegex translates a glob pattern into an anchored regexp.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			// "**/" matches zero or more whole components.
			b.WriteString("(.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			b.WriteString(".")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}

	b.WriteString("$")
	return b.String()
}
