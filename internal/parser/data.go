package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kestrelhq/kestrel/internal/model"
)

// yamlKeyPattern matches a top-level YAML mapping key at column zero.
var yamlKeyPattern = regexp.MustCompile(`^([A-Za-z0-9_.$-]+)\s*:`)

// jsonKeyPattern matches an object key: "name":
var jsonKeyPattern = regexp.MustCompile(`^\s*"([^"]+)"\s*:`)

// DataParser chunks JSON and YAML configuration files by their top-level
// keys, so a query for a setting name lands on its section rather than the
// whole file.
type DataParser struct{}

// NewDataParser creates a data-file chunker.
func NewDataParser() *DataParser {
	return &DataParser{}
}

// Parse splits a JSON or YAML file into one chunk per top-level key.
// Files without recognizable structure return nil and fall back to text
// chunking in the router.
func (p *DataParser) Parse(path string, content []byte, fileHash string) []*model.Chunk {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return p.chunkByKeys(path, content, fileHash, p.jsonTopLevelKey)
	case ".yaml", ".yml":
		return p.chunkByKeys(path, content, fileHash, p.yamlTopLevelKey)
	}
	return nil
}

// keyFunc returns the top-level key starting at the given line, or "".
type keyFunc func(lines []string, i int, depth int) string

func (p *DataParser) yamlTopLevelKey(lines []string, i, _ int) string {
	if match := yamlKeyPattern.FindStringSubmatch(lines[i]); match != nil {
		return match[1]
	}
	return ""
}

func (p *DataParser) jsonTopLevelKey(lines []string, i, depth int) string {
	if depth != 1 {
		return ""
	}
	if match := jsonKeyPattern.FindStringSubmatch(lines[i]); match != nil {
		return match[1]
	}
	return ""
}

func (p *DataParser) chunkByKeys(path string, content []byte, fileHash string, key keyFunc) []*model.Chunk {
	lines := strings.Split(string(content), "\n")
	language := model.LanguageForPath(path)

	type section struct {
		name      string
		startLine int
		endLine   int
	}
	var sections []section
	depth := 0

	for i, line := range lines {
		if name := key(lines, i, depth); name != "" {
			if len(sections) > 0 {
				sections[len(sections)-1].endLine = i
			}
			sections = append(sections, section{name: name, startLine: i + 1})
		}
		for _, r := range line {
			switch r {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	if len(sections) == 0 {
		return nil
	}
	sections[len(sections)-1].endLine = len(lines)

	chunks := make([]*model.Chunk, 0, len(sections))
	for _, sec := range sections {
		body := strings.TrimRight(strings.Join(lines[sec.startLine-1:sec.endLine], "\n"), " \t\n,")
		if strings.TrimSpace(body) == "" {
			continue
		}
		chunks = append(chunks, &model.Chunk{
			ID:        model.ChunkID(path, sec.name, model.KindSection, sec.startLine),
			Path:      path,
			Content:   body,
			StartLine: sec.startLine,
			EndLine:   sec.startLine + strings.Count(body, "\n"),
			Kind:      model.KindSection,
			Symbols:   []string{sec.name},
			FileHash:  fileHash,
			Language:  language,
		})
	}
	return chunks
}
