package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kestrelhq/kestrel/internal/model"
)

// SwiftParser extracts declaration chunks from Swift sources with a line
// scanner and brace tracking. Every declaration yields a chunk; nested
// declarations carry their qualified name and breadcrumb from the enclosing
// type stack.
type SwiftParser struct{}

// NewSwiftParser creates a Swift parser.
func NewSwiftParser() *SwiftParser {
	return &SwiftParser{}
}

// declPattern matches a Swift declaration line: optional attributes and
// modifiers followed by a declaration keyword.
var declPattern = regexp.MustCompile(
	`^\s*((?:@\w+(?:\([^)]*\))?\s+)*)` +
		`((?:public|private|internal|fileprivate|open|package|final|static|override|indirect|mutating|nonmutating|nonisolated|convenience|required|lazy|weak|unowned|dynamic|optional)\s+)*` +
		`(func|class\s+func|class|struct|enum|protocol|extension|actor|macro|init\??|deinit|subscript|typealias|var|let)\b(.*)$`)

// namePattern captures the declared name after the keyword: identifier or
// backtick-quoted identifier. Operator names are not matched, so operator
// functions (e.g. `static func ==`) yield no name.
var namePattern = regexp.MustCompile("^\\s*(`[^`]+`|[A-Za-z_][A-Za-z0-9_]*)")

// swiftKeywords are excluded from reference extraction.
var swiftKeywords = map[string]struct{}{
	"self": {}, "Self": {}, "super": {}, "true": {}, "false": {}, "nil": {},
	"if": {}, "else": {}, "guard": {}, "switch": {}, "case": {}, "default": {},
	"for": {}, "while": {}, "repeat": {}, "return": {}, "throw": {}, "throws": {},
	"rethrows": {}, "try": {}, "catch": {}, "do": {}, "defer": {}, "in": {},
	"where": {}, "as": {}, "is": {}, "let": {}, "var": {}, "func": {},
	"class": {}, "struct": {}, "enum": {}, "protocol": {}, "extension": {},
	"actor": {}, "import": {}, "init": {}, "deinit": {}, "subscript": {},
	"typealias": {}, "some": {}, "any": {}, "await": {}, "async": {},
	"static": {}, "public": {}, "private": {}, "internal": {}, "fileprivate": {},
	"open": {}, "break": {}, "continue": {}, "fallthrough": {}, "inout": {},
}

// typeKinds are declarations that open a scope nested declarations belong to.
var typeKinds = map[model.Kind]struct{}{
	model.KindClass: {}, model.KindStruct: {}, model.KindEnum: {},
	model.KindProtocol: {}, model.KindExtension: {}, model.KindActor: {},
}

// scopeFrame is one entry of the type stack during traversal.
type scopeFrame struct {
	name    string
	kind    model.Kind
	endLine int // 1-based inclusive
}

// Parse extracts chunks and documentation snippets from Swift source.
func (p *SwiftParser) Parse(path string, content []byte, fileHash string) ([]*model.Chunk, []*model.Snippet, error) {
	lines := strings.Split(string(content), "\n")
	language := model.LanguageForPath(path)

	var chunks []*model.Chunk
	var snippets []*model.Snippet
	var stack []scopeFrame
	var doc docCollector

	for i := 0; i < len(lines); i++ {
		lineNo := i + 1

		// Pop scopes that ended before this line.
		for len(stack) > 0 && lineNo > stack[len(stack)-1].endLine {
			stack = stack[:len(stack)-1]
		}

		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if doc.consume(trimmed) {
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			doc.reset()
			continue
		}

		match := declPattern.FindStringSubmatch(line)
		if match == nil {
			doc.reset()
			continue
		}

		keyword := strings.Fields(match[3])[0]
		if keyword == "class" && strings.HasPrefix(match[3], "class func") {
			keyword = "func"
		}
		rest := match[4]
		kind := keywordKind(keyword, len(stack) > 0)

		name := declName(keyword, rest)
		if name == "" && keyword != "deinit" && keyword != "init" && keyword != "init?" && keyword != "subscript" {
			doc.reset()
			continue
		}

		// Function bodies are skipped wholesale below, so any var/let seen
		// here is at member or file scope; locals never become chunks.
		endLine := findDeclEnd(lines, i)

		qualified, short, breadcrumb := qualify(stack, name)
		signature := buildSignature(lines, i, endLine)
		conformances := parseConformances(keyword, rest)
		body := strings.Join(lines[i:endLine], "\n")
		references := extractReferences(body, short)
		docComment := doc.take()

		chunkContent := trimChunkContent(lines, i, endLine)
		chunk := &model.Chunk{
			ID:           model.ChunkID(path, qualified, kind, lineNo),
			Path:         path,
			Content:      chunkContent,
			StartLine:    lineNo,
			EndLine:      endLine,
			Kind:         kind,
			Symbols:      symbolsFor(qualified, short),
			References:   references,
			Conformances: conformances,
			FileHash:     fileHash,
			DocComment:   docComment,
			Signature:    signature,
			Breadcrumb:   breadcrumb,
			Language:     language,
		}
		chunks = append(chunks, chunk)

		if docComment != "" && len(docComment) >= 40 {
			snippets = append(snippets, &model.Snippet{
				ID:         model.SnippetID(path, breadcrumbOr(breadcrumb, short), lineNo),
				Path:       path,
				Content:    docComment,
				StartLine:  lineNo,
				EndLine:    lineNo,
				Breadcrumb: breadcrumbOr(breadcrumb, short),
				Language:   language,
				ChunkID:    chunk.ID,
				Kind:       model.SnippetDocumentation,
				FileHash:   fileHash,
			})
		}

		if _, isType := typeKinds[kind]; isType {
			// Descend into the type body for nested declarations.
			stack = append(stack, scopeFrame{name: short, kind: kind, endLine: endLine})
		} else {
			// Skip the body: locals and nested closures never chunk.
			i = endLine - 1
		}
	}

	return chunks, snippets, nil
}

// docCollector accumulates /// and /** */ comment runs above a declaration.
type docCollector struct {
	lines   []string
	inBlock bool
}

// consume reports whether the line belongs to a documentation comment.
func (d *docCollector) consume(trimmed string) bool {
	if d.inBlock {
		text := strings.TrimSpace(strings.TrimSuffix(trimmed, "*/"))
		text = strings.TrimSpace(strings.TrimPrefix(text, "*"))
		if text != "" {
			d.lines = append(d.lines, text)
		}
		if strings.HasSuffix(trimmed, "*/") {
			d.inBlock = false
		}
		return true
	}
	if strings.HasPrefix(trimmed, "///") {
		d.lines = append(d.lines, strings.TrimSpace(strings.TrimPrefix(trimmed, "///")))
		return true
	}
	if strings.HasPrefix(trimmed, "/**") {
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, "/**"))
		if strings.HasSuffix(text, "*/") {
			text = strings.TrimSpace(strings.TrimSuffix(text, "*/"))
		} else {
			d.inBlock = true
		}
		if text != "" {
			d.lines = append(d.lines, text)
		}
		return true
	}
	return false
}

func (d *docCollector) reset() {
	d.lines = nil
	d.inBlock = false
}

// take returns the accumulated comment, trimmed, and resets the collector.
func (d *docCollector) take() string {
	text := strings.TrimSpace(strings.Join(d.lines, "\n"))
	d.reset()
	return text
}

// keywordKind maps a declaration keyword to a chunk kind. func becomes method
// inside a type scope.
func keywordKind(keyword string, nested bool) model.Kind {
	switch keyword {
	case "func":
		if nested {
			return model.KindMethod
		}
		return model.KindFunction
	case "class":
		return model.KindClass
	case "struct":
		return model.KindStruct
	case "enum":
		return model.KindEnum
	case "protocol":
		return model.KindProtocol
	case "extension":
		return model.KindExtension
	case "actor":
		return model.KindActor
	case "macro":
		return model.KindMacro
	case "init", "init?":
		return model.KindInitializer
	case "deinit":
		return model.KindDeinitializer
	case "subscript":
		return model.KindSubscript
	case "typealias":
		return model.KindTypealias
	case "var":
		return model.KindVariable
	case "let":
		return model.KindConstant
	default:
		return model.KindUnknown
	}
}

// declName extracts the declared name following the keyword.
func declName(keyword, rest string) string {
	switch keyword {
	case "init", "init?":
		return "init"
	case "deinit":
		return "deinit"
	case "subscript":
		return "subscript"
	}
	match := namePattern.FindStringSubmatch(rest)
	if match == nil {
		return ""
	}
	return strings.Trim(match[1], "`")
}

// findDeclEnd returns the 1-based inclusive end line of the declaration
// starting at lines[start]. Single-line declarations (no opening brace before
// a statement boundary) end on their own line.
func findDeclEnd(lines []string, start int) int {
	braces := 0
	parens := 0
	opened := false
	for i := start; i < len(lines); i++ {
		code := stripLineNoise(lines[i])
		if !opened && i > start && parens <= 0 && !strings.HasPrefix(strings.TrimSpace(code), "{") {
			// Declaration without a body (typealias, protocol requirement,
			// stored property): ends before the next non-continuation line.
			return i
		}
		for _, r := range code {
			switch r {
			case '{':
				braces++
				opened = true
			case '}':
				braces--
			case '(', '[':
				parens++
			case ')', ']':
				parens--
			}
		}
		if opened && braces <= 0 {
			return i + 1
		}
	}
	if !opened {
		return start + 1
	}
	return len(lines)
}

// stripLineNoise removes string literals and line comments so brace counting
// is not fooled by them.
func stripLineNoise(line string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == '/' && i+1 < len(line) && line[i+1] == '/' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// qualify builds the qualified name, short name, and breadcrumb from the
// current type stack.
func qualify(stack []scopeFrame, name string) (qualified, short, breadcrumb string) {
	short = name
	if len(stack) == 0 {
		return name, name, ""
	}
	parts := make([]string, 0, len(stack)+1)
	for _, f := range stack {
		parts = append(parts, f.name)
	}
	qualified = strings.Join(append(parts, name), ".")
	breadcrumb = strings.Join(append(parts, name), " > ")
	return qualified, short, breadcrumb
}

// symbolsFor returns the ordered symbol list: qualified name first, short
// name second when they differ.
func symbolsFor(qualified, short string) []string {
	if qualified == short {
		return []string{qualified}
	}
	return []string{qualified, short}
}

// buildSignature reconstructs the single-line declaration signature: the
// header lines up to the opening brace, whitespace-collapsed.
func buildSignature(lines []string, start, endLine int) string {
	var parts []string
	for i := start; i < endLine && i < len(lines); i++ {
		line := lines[i]
		if idx := strings.Index(line, "{"); idx >= 0 {
			parts = append(parts, strings.TrimSpace(line[:idx]))
			break
		}
		parts = append(parts, strings.TrimSpace(line))
		// Header continuation only spans unbalanced parentheses.
		joined := strings.Join(parts, " ")
		if strings.Count(joined, "(") == strings.Count(joined, ")") && i > start {
			break
		}
	}
	sig := strings.Join(parts, " ")
	return strings.Join(strings.Fields(sig), " ")
}

// parseConformances extracts inheritance/conformance names from the clause
// after the type name: "struct A: B, C where ..." yields [B, C].
func parseConformances(keyword, rest string) []string {
	switch keyword {
	case "class", "struct", "enum", "protocol", "extension", "actor":
	default:
		return nil
	}
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return nil
	}
	clause := rest[colon+1:]
	for _, stop := range []string{"{", " where "} {
		if idx := strings.Index(clause, stop); idx >= 0 {
			clause = clause[:idx]
		}
	}
	var names []string
	for _, part := range strings.Split(clause, ",") {
		name := strings.TrimSpace(part)
		// Drop generic arguments: "Collection<Element>" conforms to Collection.
		if idx := strings.Index(name, "<"); idx >= 0 {
			name = name[:idx]
		}
		if name != "" && namePattern.MatchString(name) {
			names = append(names, name)
		}
	}
	return names
}

// referencePattern matches identifiers and dotted member chains.
var referencePattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`)

// extractReferences collects type and member-base names referenced in the
// body: capitalized identifiers plus the base of dotted chains, excluding
// keywords and the declaration's own name.
func extractReferences(body, ownName string) []string {
	seen := make(map[string]struct{})
	for _, match := range referencePattern.FindAllString(body, -1) {
		base := match
		if idx := strings.Index(match, "."); idx >= 0 {
			base = match[:idx]
		}
		if _, kw := swiftKeywords[base]; kw {
			continue
		}
		if base == ownName || len(base) < 2 {
			continue
		}
		// Identifier-type references are capitalized; lowercase names only
		// count as dotted-member bases.
		isUpper := base[0] >= 'A' && base[0] <= 'Z'
		isDottedBase := strings.Contains(match, ".")
		if !isUpper && !isDottedBase {
			continue
		}
		seen[base] = struct{}{}
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// trimChunkContent returns the declaration text with trailing whitespace and
// blank lines removed; leading lines are kept as they are.
func trimChunkContent(lines []string, start, endLine int) string {
	if endLine > len(lines) {
		endLine = len(lines)
	}
	return strings.TrimRight(strings.Join(lines[start:endLine], "\n"), " \t\n")
}

func breadcrumbOr(breadcrumb, fallback string) string {
	if breadcrumb != "" {
		return breadcrumb
	}
	return fallback
}
