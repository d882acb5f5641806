package search

import (
	"regexp"
	"strings"
)

// conformanceProbePatterns match queries asking for the implementors of a
// protocol or superclass, capturing the target name. Tested against the
// literal query string.
var conformanceProbePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhat\s+implements\s+(\w+)`),
	regexp.MustCompile(`(?i)\bwhich\s+(?:classes|structs|types)\s+implement\s+(\w+)`),
	regexp.MustCompile(`(?i)\b(?:classes|structs|types)\s+that\s+implement\s+(\w+)`),
	regexp.MustCompile(`(?i)\bimplementations?\s+of\s+(\w+)`),
	regexp.MustCompile(`(?i)\bimplements\s+(\w+)`),
	regexp.MustCompile(`(?i)\bconforms?\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)\bconforming\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)\binherits?\s+from\s+(\w+)`),
	regexp.MustCompile(`(?i)\bsubclass(?:es)?\s+of\s+(\w+)`),
}

// conformanceTarget extracts the protocol name from an implementors query,
// capitalized, or "" when the query has no conformance shape.
func conformanceTarget(query string) string {
	for _, pattern := range conformanceProbePatterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			name := match[1]
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return ""
}
