package mcp

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query         string   `json:"query" jsonschema:"the search query to execute"`
	Limit         int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	PathFilter    string   `json:"path_filter,omitempty" jsonschema:"glob restricting result paths, e.g. Sources/**/*.swift"`
	Extensions    []string `json:"extensions,omitempty" jsonschema:"restrict results to these file extensions"`
	MultiHop      bool     `json:"multi_hop,omitempty" jsonschema:"expand results by following referenced symbols"`
	MultiHopDepth int      `json:"multi_hop_depth,omitempty" jsonschema:"reference expansion depth, default 1 when multi_hop is set"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// SearchResultOutput is one ranked hit.
type SearchResultOutput struct {
	Path             string  `json:"path" jsonschema:"source file path"`
	StartLine        int     `json:"start_line" jsonschema:"1-based first line of the chunk"`
	EndLine          int     `json:"end_line" jsonschema:"1-based last line of the chunk"`
	Kind             string  `json:"kind" jsonschema:"declaration kind, e.g. function, class, protocol"`
	Symbol           string  `json:"symbol,omitempty" jsonschema:"qualified name of the declaration"`
	Signature        string  `json:"signature,omitempty" jsonschema:"single-line declaration signature"`
	Content          string  `json:"content" jsonschema:"chunk source text"`
	Score            float64 `json:"score" jsonschema:"relevance score, higher is better"`
	ExactSymbolMatch bool    `json:"exact_symbol_match,omitempty" jsonschema:"true when a rare query term matched a declared symbol or a rare CamelCase term appears in the content"`
	IsMultiHop       bool    `json:"is_multi_hop,omitempty" jsonschema:"true when found via reference expansion"`
	HopDepth         int     `json:"hop_depth,omitempty" jsonschema:"reference expansion depth"`
}

// SearchDocsInput is the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query      string `json:"query" jsonschema:"the documentation search query"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of snippets, default 10"`
	PathFilter string `json:"path_filter,omitempty" jsonschema:"glob restricting snippet paths"`
}

// SearchDocsOutput is the output schema for the search_docs tool.
type SearchDocsOutput struct {
	Snippets []SnippetOutput `json:"snippets" jsonschema:"ranked documentation snippets"`
}

// SnippetOutput is one documentation hit.
type SnippetOutput struct {
	Path       string  `json:"path" jsonschema:"source file path"`
	Breadcrumb string  `json:"breadcrumb,omitempty" jsonschema:"heading hierarchy, e.g. Guide > Setup"`
	Content    string  `json:"content" jsonschema:"snippet text"`
	StartLine  int     `json:"start_line" jsonschema:"1-based first line"`
	Score      float64 `json:"score" jsonschema:"BM25 score"`
}

// IndexStatusInput is the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput reports index statistics and consistency.
type IndexStatusOutput struct {
	ChunkCount   int  `json:"chunk_count" jsonschema:"chunks in the index"`
	VectorCount  int  `json:"vector_count" jsonschema:"vectors in the index"`
	SnippetCount int  `json:"snippet_count" jsonschema:"documentation snippets in the index"`
	FileCount    int  `json:"file_count" jsonschema:"files recorded as indexed"`
	IsConsistent bool `json:"is_consistent" jsonschema:"true when chunk and vector counts match"`
}
