package parser

import (
	"regexp"
	"strings"

	"github.com/kestrelhq/kestrel/internal/model"
)

// headerPattern matches ATX headers: # Title through ###### Title.
var headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// MarkdownParser emits one chunk per ATX-delimited section, with the heading
// stack joined into the breadcrumb, plus a parallel snippet per section.
type MarkdownParser struct{}

// NewMarkdownParser creates a markdown sectioner.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

type mdSection struct {
	title      string
	breadcrumb string
	startLine  int // 1-based
	lines      []string
}

// Parse splits markdown content into section chunks and snippets.
// Content before the first header becomes a document chunk.
func (p *MarkdownParser) Parse(path string, content []byte, fileHash string) ([]*model.Chunk, []*model.Snippet) {
	lines := strings.Split(string(content), "\n")

	var sections []*mdSection
	var preamble []string
	preambleStart := 1
	headerStack := make([]string, 6)

	var current *mdSection
	inFence := false

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}

		match := headerPattern.FindStringSubmatch(line)
		if match != nil && !inFence {
			if current != nil {
				sections = append(sections, current)
			}

			level := len(match[1])
			title := strings.TrimSpace(match[2])
			headerStack[level-1] = title
			for j := level; j < 6; j++ {
				headerStack[j] = ""
			}

			var crumbs []string
			for j := 0; j < level; j++ {
				if headerStack[j] != "" {
					crumbs = append(crumbs, headerStack[j])
				}
			}

			current = &mdSection{
				title:      title,
				breadcrumb: strings.Join(crumbs, " > "),
				startLine:  i + 1,
				lines:      []string{line},
			}
			continue
		}

		if current != nil {
			current.lines = append(current.lines, line)
		} else {
			preamble = append(preamble, line)
		}
	}
	if current != nil {
		sections = append(sections, current)
	}

	var chunks []*model.Chunk
	var snippets []*model.Snippet

	if body := strings.TrimRight(strings.Join(preamble, "\n"), " \t\n"); strings.TrimSpace(body) != "" {
		chunks = append(chunks, &model.Chunk{
			ID:        model.TextChunkID(path, preambleStart, body),
			Path:      path,
			Content:   body,
			StartLine: preambleStart,
			EndLine:   preambleStart + strings.Count(body, "\n"),
			Kind:      model.KindDocument,
			FileHash:  fileHash,
			Language:  "markdown",
		})
	}

	for _, sec := range sections {
		body := strings.TrimRight(strings.Join(sec.lines, "\n"), " \t\n")
		if strings.TrimSpace(body) == "" {
			continue
		}
		endLine := sec.startLine + strings.Count(body, "\n")

		chunk := &model.Chunk{
			ID:         model.ChunkID(path, sec.breadcrumb, model.KindSection, sec.startLine),
			Path:       path,
			Content:    body,
			StartLine:  sec.startLine,
			EndLine:    endLine,
			Kind:       model.KindSection,
			Symbols:    []string{sec.title},
			FileHash:   fileHash,
			Breadcrumb: sec.breadcrumb,
			Language:   "markdown",
		}
		chunks = append(chunks, chunk)

		snippets = append(snippets, &model.Snippet{
			ID:         model.SnippetID(path, sec.breadcrumb, sec.startLine),
			Path:       path,
			Content:    body,
			StartLine:  sec.startLine,
			EndLine:    endLine,
			Breadcrumb: sec.breadcrumb,
			Language:   "markdown",
			ChunkID:    chunk.ID,
			Kind:       model.SnippetMarkdownSection,
			FileHash:   fileHash,
		})
	}

	return chunks, snippets
}
