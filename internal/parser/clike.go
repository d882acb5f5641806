package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kestrelhq/kestrel/internal/model"
)

// clikeConfig maps tree-sitter node types to chunk kinds for one language.
type clikeConfig struct {
	language *sitter.Language
	kinds    map[string]model.Kind
	// scopeTypes are node types whose children are visited with the type
	// stack pushed (classes, namespaces).
	scopeTypes map[string]struct{}
}

// TreeSitterParser extracts declaration chunks from C-family sources using
// tree-sitter grammars.
type TreeSitterParser struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	configs map[string]*clikeConfig // keyed by extension
}

// NewTreeSitterParser creates a parser with the C, C++, JavaScript, and
// TypeScript grammars registered.
func NewTreeSitterParser() *TreeSitterParser {
	p := &TreeSitterParser{
		parser:  sitter.NewParser(),
		configs: make(map[string]*clikeConfig),
	}

	cConfig := &clikeConfig{
		language: c.GetLanguage(),
		kinds: map[string]model.Kind{
			"function_definition": model.KindFunction,
			"struct_specifier":    model.KindStruct,
			"enum_specifier":      model.KindEnum,
			"type_definition":     model.KindTypealias,
		},
		scopeTypes: map[string]struct{}{},
	}
	p.register(cConfig, ".c", ".h")

	cppConfig := &clikeConfig{
		language: cpp.GetLanguage(),
		kinds: map[string]model.Kind{
			"function_definition":  model.KindFunction,
			"class_specifier":      model.KindClass,
			"struct_specifier":     model.KindStruct,
			"enum_specifier":       model.KindEnum,
			"namespace_definition": model.KindNamespace,
			"type_definition":      model.KindTypealias,
			"alias_declaration":    model.KindTypealias,
		},
		scopeTypes: map[string]struct{}{
			"class_specifier":      {},
			"struct_specifier":     {},
			"namespace_definition": {},
		},
	}
	p.register(cppConfig, ".cpp", ".cc", ".hpp", ".m", ".mm")

	jsConfig := &clikeConfig{
		language: javascript.GetLanguage(),
		kinds: map[string]model.Kind{
			"function_declaration":  model.KindFunction,
			"generator_function_declaration": model.KindFunction,
			"class_declaration":     model.KindClass,
			"method_definition":     model.KindMethod,
			"lexical_declaration":   model.KindConstant,
		},
		scopeTypes: map[string]struct{}{
			"class_declaration": {},
		},
	}
	p.register(jsConfig, ".js", ".jsx")

	tsConfig := &clikeConfig{
		language: typescript.GetLanguage(),
		kinds: map[string]model.Kind{
			"function_declaration":  model.KindFunction,
			"class_declaration":     model.KindClass,
			"method_definition":     model.KindMethod,
			"interface_declaration": model.KindInterface,
			"enum_declaration":      model.KindEnum,
			"type_alias_declaration": model.KindTypealias,
			"lexical_declaration":   model.KindConstant,
		},
		scopeTypes: map[string]struct{}{
			"class_declaration":     {},
			"interface_declaration": {},
		},
	}
	p.register(tsConfig, ".ts")

	tsxConfig := &clikeConfig{
		language:   tsx.GetLanguage(),
		kinds:      tsConfig.kinds,
		scopeTypes: tsConfig.scopeTypes,
	}
	p.register(tsxConfig, ".tsx")

	return p
}

func (p *TreeSitterParser) register(cfg *clikeConfig, exts ...string) {
	for _, ext := range exts {
		p.configs[ext] = cfg
	}
}

// Parse extracts declaration chunks from one C-family source file.
func (p *TreeSitterParser) Parse(ctx context.Context, path string, content []byte, fileHash string) ([]*model.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(path))
	cfg, ok := p.configs[ext]
	if !ok {
		return nil, fmt.Errorf("no grammar registered for %s", ext)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.parser.SetLanguage(cfg.language)
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse %s: nil tree", path)
	}
	defer tree.Close()

	language := model.LanguageForPath(path)
	var chunks []*model.Chunk
	p.walk(tree.RootNode(), content, cfg, path, fileHash, language, nil, &chunks)
	return chunks, nil
}

// walk visits the AST, emitting a chunk at every declaration node and
// descending into scope nodes with the type stack pushed.
func (p *TreeSitterParser) walk(node *sitter.Node, source []byte, cfg *clikeConfig, path, fileHash, language string, stack []string, chunks *[]*model.Chunk) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		nodeType := child.Type()
		kind, isDecl := cfg.kinds[nodeType]

		if isDecl {
			name := nodeName(child, source)
			if name != "" {
				// Constants only at file or member scope, mirroring the
				// variable/constant policy of the Swift extractor.
				if kind != model.KindConstant || nestableScope(node.Type()) {
					*chunks = append(*chunks, p.chunkFor(child, source, path, fileHash, language, stack, name, kind))
				}
			}
			if _, isScope := cfg.scopeTypes[nodeType]; isScope && name != "" {
				p.walk(child, source, cfg, path, fileHash, language, append(stack, name), chunks)
				continue
			}
			continue
		}

		// Transparent containers (declaration lists, export statements,
		// template declarations) are traversed without affecting the stack.
		p.walk(child, source, cfg, path, fileHash, language, stack, chunks)
	}
}

// nestableScope reports whether declarations directly under the given parent
// node type are file- or member-scoped.
func nestableScope(parentType string) bool {
	switch parentType {
	case "translation_unit", "program", "source_file", "declaration_list",
		"class_body", "interface_body", "field_declaration_list", "namespace_definition",
		"export_statement":
		return true
	}
	return false
}

func (p *TreeSitterParser) chunkFor(node *sitter.Node, source []byte, path, fileHash, language string, stack []string, name string, kind model.Kind) *model.Chunk {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	content := string(source[node.StartByte():node.EndByte()])

	qualified := name
	breadcrumb := ""
	if len(stack) > 0 {
		qualified = strings.Join(append(append([]string{}, stack...), name), ".")
		breadcrumb = strings.Join(append(append([]string{}, stack...), name), " > ")
	}
	if kind == model.KindMethod && len(stack) == 0 {
		kind = model.KindFunction
	}

	return &model.Chunk{
		ID:           model.ChunkID(path, qualified, kind, startLine),
		Path:         path,
		Content:      content,
		StartLine:    startLine,
		EndLine:      endLine,
		Kind:         kind,
		Symbols:      symbolsFor(qualified, name),
		References:   extractReferences(content, name),
		Conformances: heritageNames(node, source),
		FileHash:     fileHash,
		Signature:    firstSignatureLine(content),
		Breadcrumb:   breadcrumb,
		Language:     language,
	}
}

// nodeName resolves the declared name of a node: the "name" field when
// present, otherwise the first identifier under the declarator chain.
func nodeName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(source)
	}
	if decl := node.ChildByFieldName("declarator"); decl != nil {
		return firstIdentifier(decl, source)
	}
	// lexical_declaration: name sits on the first variable_declarator.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "variable_declarator" {
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(source)
			}
		}
	}
	return ""
}

func firstIdentifier(node *sitter.Node, source []byte) string {
	if node.Type() == "identifier" || node.Type() == "field_identifier" ||
		node.Type() == "type_identifier" || node.Type() == "property_identifier" {
		return node.Content(source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if name := firstIdentifier(child, source); name != "" {
			return name
		}
	}
	return ""
}

// heritageNames extracts superclass/interface names from class heritage
// (JS/TS "extends"/"implements") and C++ base class clauses.
func heritageNames(node *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "class_heritage", "extends_clause", "implements_clause", "base_class_clause":
			for _, match := range referencePattern.FindAllString(child.Content(source), -1) {
				switch match {
				case "extends", "implements", "public", "private", "protected", "virtual":
					continue
				}
				names = append(names, match)
			}
		}
	}
	return names
}

// firstSignatureLine returns the first line of the declaration, trimmed, with
// a trailing open brace removed.
func firstSignatureLine(content string) string {
	line := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}
	line = strings.TrimSuffix(strings.TrimSpace(line), "{")
	return strings.TrimSpace(line)
}

// Close releases the tree-sitter parser.
func (p *TreeSitterParser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser != nil {
		p.parser.Close()
	}
}
