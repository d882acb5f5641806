package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/model"
)

// BleveSnippetStore implements SnippetStore on a Bleve index. Snippets are
// prose, so the standard analyzer serves; the code tokenizer stays with the
// chunk store.
type BleveSnippetStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ SnippetStore = (*BleveSnippetStore)(nil)

// snippetDocument is the Bleve document for a snippet. All fields are stored
// so hits can be reconstructed without a second lookup.
type snippetDocument struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Breadcrumb string `json:"breadcrumb"`
	Language   string `json:"language"`
	ChunkID    string `json:"chunk_id"`
	Kind       string `json:"kind"`
	FileHash   string `json:"file_hash"`
}

// NewBleveSnippetStore opens (or creates) a snippet store at path.
// An empty path creates an in-memory store for testing.
func NewBleveSnippetStore(path string) (*BleveSnippetStore, error) {
	indexMapping := createSnippetMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create directory: %v", mkErr), mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("open snippet store: %v", err), err)
	}

	return &BleveSnippetStore{index: idx, path: path}, nil
}

func createSnippetMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("breadcrumb", text)

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true
	doc.AddFieldMappingsAt("path", keyword)
	doc.AddFieldMappingsAt("language", keyword)
	doc.AddFieldMappingsAt("chunk_id", keyword)
	doc.AddFieldMappingsAt("kind", keyword)
	doc.AddFieldMappingsAt("file_hash", keyword)

	num := bleve.NewNumericFieldMapping()
	num.Store = true
	doc.AddFieldMappingsAt("start_line", num)
	doc.AddFieldMappingsAt("end_line", num)

	indexMapping.DefaultMapping = doc
	return indexMapping
}

// Insert adds snippets to the store in one batch.
func (s *BleveSnippetStore) Insert(ctx context.Context, snippets []*model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "snippet store is closed", nil)
	}

	batch := s.index.NewBatch()
	for _, sn := range snippets {
		doc := snippetDocument{
			Path:       sn.Path,
			Content:    sn.Content,
			StartLine:  sn.StartLine,
			EndLine:    sn.EndLine,
			Breadcrumb: sn.Breadcrumb,
			Language:   sn.Language,
			ChunkID:    sn.ChunkID,
			Kind:       string(sn.Kind),
			FileHash:   sn.FileHash,
		}
		if err := batch.Index(sn.ID, doc); err != nil {
			return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("index snippet %s: %v", sn.ID, err), err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("execute snippet batch: %v", err), err)
	}
	return nil
}

// DeleteByPath removes every snippet whose Path equals path.
func (s *BleveSnippetStore) DeleteByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "snippet store is closed", nil)
	}

	term := query.NewTermQuery(path)
	term.SetField("path")
	req := bleve.NewSearchRequest(term)
	req.Size = 10000

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("lookup snippets for %s: %v", path, err), err)
	}

	batch := s.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := s.index.Batch(batch); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("delete snippets for %s: %v", path, err), err)
	}
	return nil
}

// SearchFTS returns the top-limit snippets for the query scored by BM25.
// Query-syntax failures degrade to an empty result.
func (s *BleveSnippetStore) SearchFTS(ctx context.Context, queryStr string, limit int) ([]SnippetResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "snippet store is closed", nil)
	}
	if queryStr == "" || limit <= 0 {
		return []SnippetResult{}, nil
	}

	match := bleve.NewMatchQuery(queryStr)
	match.SetField("content")
	crumb := bleve.NewMatchQuery(queryStr)
	crumb.SetField("breadcrumb")
	disjunction := bleve.NewDisjunctionQuery(match, crumb)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = limit
	req.Fields = []string{"*"}

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return []SnippetResult{}, nil
	}

	results := make([]SnippetResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, SnippetResult{
			Snippet: snippetFromFields(hit.ID, hit.Fields),
			Score:   hit.Score,
		})
	}
	return results, nil
}

// snippetFromFields reconstructs a snippet from stored Bleve fields.
// Numeric fields come back as float64.
func snippetFromFields(id string, fields map[string]any) *model.Snippet {
	sn := &model.Snippet{ID: id}
	if v, ok := fields["path"].(string); ok {
		sn.Path = v
	}
	if v, ok := fields["content"].(string); ok {
		sn.Content = v
	}
	if v, ok := fields["breadcrumb"].(string); ok {
		sn.Breadcrumb = v
	}
	if v, ok := fields["language"].(string); ok {
		sn.Language = v
	}
	if v, ok := fields["chunk_id"].(string); ok {
		sn.ChunkID = v
	}
	if v, ok := fields["kind"].(string); ok {
		sn.Kind = model.SnippetKind(v)
	}
	if v, ok := fields["file_hash"].(string); ok {
		sn.FileHash = v
	}
	if v, ok := fields["start_line"].(float64); ok {
		sn.StartLine = int(v)
	}
	if v, ok := fields["end_line"].(float64); ok {
		sn.EndLine = int(v)
	}
	return sn
}

// Count returns the number of snippets.
func (s *BleveSnippetStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, kerrors.StoreError(kerrors.CodeIO, "snippet store is closed", nil)
	}
	count, err := s.index.DocCount()
	if err != nil {
		return 0, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("count snippets: %v", err), err)
	}
	return int(count), nil
}

// Close closes the underlying index. Idempotent.
func (s *BleveSnippetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}
