package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// HNSWConfig configures the vector store.
type HNSWConfig struct {
	// Dimensions is the fixed vector dimension.
	Dimensions int

	// M is the HNSW max connections per layer (default: 16).
	M int

	// EfSearch is the HNSW query-time search width (default: 20).
	EfSearch int
}

// DefaultHNSWConfig returns sensible defaults for the given dimension.
func DefaultHNSWConfig(dimensions int) HNSWConfig {
	return HNSWConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}

// HNSWStore implements VectorStore on coder/hnsw, a pure Go HNSW graph.
// Deletes are lazy: the node stays in the graph but loses its id mapping, so
// it can no longer surface in results. This sidesteps graph corruption when
// the last node is removed.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config HNSWConfig

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

var _ VectorStore = (*HNSWStore)(nil)

// hnswMetadata is the gob sidecar holding id mappings and config.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  HNSWConfig
}

// NewHNSWStore creates an empty vector store with the given config.
func NewHNSWStore(cfg HNSWConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, kerrors.StoreError(kerrors.CodeInvalidInput, "vector dimensions must be positive", nil)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	s := &HNSWStore{
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
	s.graph = newGraph(cfg)
	return s, nil
}

func newGraph(cfg HNSWConfig) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25
	return g
}

// Add inserts a vector under id, replacing any existing entry.
func (s *HNSWStore) Add(ctx context.Context, id string, vector []float32) error {
	return s.AddBatch(ctx, []string{id}, [][]float32{vector})
}

// AddBatch inserts many vectors. Dimension equality is enforced before any
// insert so a bad batch leaves the store unchanged.
func (s *HNSWStore) AddBatch(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return kerrors.StoreError(kerrors.CodeInvalidInput,
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "vector store is closed", nil)
	}
	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return kerrors.DimensionMismatch(s.config.Dimensions, len(v))
		}
	}

	for i, id := range ids {
		if existingKey, exists := s.idMap[id]; exists {
			// Lazy replacement: orphan the old key instead of deleting from
			// the graph.
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Search returns the top-limit nearest neighbors by cosine similarity.
func (s *HNSWStore) Search(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "vector store is closed", nil)
	}
	if len(vector) != s.config.Dimensions {
		return nil, kerrors.DimensionMismatch(s.config.Dimensions, len(vector))
	}
	if s.graph.Len() == 0 || limit <= 0 {
		return []VectorResult{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	// Over-fetch to compensate for lazily deleted nodes still in the graph.
	orphans := s.graph.Len() - len(s.idMap)
	nodes := s.graph.Search(query, limit+orphans)

	results := make([]VectorResult, 0, limit)
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily deleted
		}
		distance := s.graph.Distance(query, node.Value)
		results = append(results, VectorResult{
			ID: id,
			// Cosine distance is 1 - similarity.
			Similarity: 1.0 - distance,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// Delete removes vectors by id. Unknown ids are ignored.
func (s *HNSWStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "vector store is closed", nil)
	}
	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

// Contains reports whether id has a vector.
func (s *HNSWStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	_, exists := s.idMap[id]
	return exists
}

// Count returns the number of live vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Dimensions returns the fixed vector dimension.
func (s *HNSWStore) Dimensions() int {
	return s.config.Dimensions
}

// Clear removes all vectors and resets the graph.
func (s *HNSWStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.graph = newGraph(s.config)
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.nextKey = 0
}

// Save persists the graph and its id-mapping sidecar atomically
// (temp file + rename).
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "vector store is closed", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create directory: %v", err), err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create index file: %v", err), err)
	}
	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("export graph: %v", err), err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("close index file: %v", err), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("rename index file: %v", err), err)
	}

	return s.saveMetadata(path + ".mapping")
}

func (s *HNSWStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create mapping file: %v", err), err)
	}

	meta := hnswMetadata{
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Config:  s.config,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("encode mapping: %v", err), err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("close mapping file: %v", err), err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and id mappings from path.
func (s *HNSWStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "vector store is closed", nil)
	}
	if err := s.loadMetadata(path + ".mapping"); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("open index file: %v", err), err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return kerrors.StoreError(kerrors.CodeCorruption, fmt.Sprintf("import graph: %v", err), err)
	}
	return nil
}

func (s *HNSWStore) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("open mapping file: %v", err), err)
	}
	defer file.Close()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return kerrors.StoreError(kerrors.CodeCorruption, fmt.Sprintf("decode mapping: %v", err), err)
	}

	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.config = meta.Config
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases resources. Idempotent.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalizeInPlace scales v to unit length; zero vectors are left as-is.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
