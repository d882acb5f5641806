// Package index provides the Manager, the single serialization point over the
// chunk, vector, and snippet stores for one index directory.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/store"
)

// Persisted state layout inside the index directory.
const (
	ChunkDBFile    = "chunks.db"
	VectorFile     = "vectors.hnsw" // + ".mapping" sidecar
	SnippetDir     = "snippets.bleve"
	FileHashesFile = "file-hashes"
	lockFile       = ".lock"
)

// Item pairs a chunk with its embedding for batch indexing.
type Item struct {
	Chunk  *model.Chunk
	Vector []float32
}

// Statistics reports store sizes and the joint consistency invariant.
type Statistics struct {
	ChunkCount   int
	VectorCount  int
	SnippetCount int
	FileCount    int
	IsConsistent bool // chunkCount == vectorCount
}

// Manager exclusively owns one chunk store, one vector store, and one snippet
// store, and guarantees the chunk and vector stores stay in step: after every
// Index or DeleteByPath, chunkCount == vectorCount.
type Manager struct {
	mu       sync.Mutex
	chunks   store.ChunkStore
	vectors  store.VectorStore
	snippets store.SnippetStore

	dir      string
	lock     *flock.Flock
	hashes   map[string]string // path -> fileHash
	hashRefs map[string]int    // fileHash -> number of paths
}

// NewManager wires a Manager over already-open stores. Used by tests and by
// Open. The Manager takes ownership; callers must not touch the stores again.
func NewManager(chunks store.ChunkStore, vectors store.VectorStore, snippets store.SnippetStore, dir string) *Manager {
	return &Manager{
		chunks:   chunks,
		vectors:  vectors,
		snippets: snippets,
		dir:      dir,
		hashes:   make(map[string]string),
		hashRefs: make(map[string]int),
	}
}

// Open opens (or creates) the index at dir with the given embedding dimension,
// acquiring an exclusive directory lock so a watcher and a manual reindex
// cannot interleave writes.
func Open(dir string, dimensions int) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create index directory: %v", err), err)
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("acquire index lock: %v", err), err)
	}
	if !locked {
		return nil, kerrors.StoreError(kerrors.CodeIO,
			fmt.Sprintf("index at %s is locked by another process", dir), nil)
	}

	chunks, err := store.NewSQLiteChunkStore(filepath.Join(dir, ChunkDBFile))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	vectors, err := store.NewHNSWStore(store.DefaultHNSWConfig(dimensions))
	if err != nil {
		_ = chunks.Close()
		_ = lock.Unlock()
		return nil, err
	}
	vectorPath := filepath.Join(dir, VectorFile)
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := vectors.Load(vectorPath); err != nil {
			slog.Warn("vector index unreadable, starting empty",
				slog.String("path", vectorPath),
				slog.String("error", err.Error()))
			vectors.Clear()
		}
	}

	snippets, err := store.NewBleveSnippetStore(filepath.Join(dir, SnippetDir))
	if err != nil {
		_ = chunks.Close()
		_ = vectors.Close()
		_ = lock.Unlock()
		return nil, err
	}

	m := NewManager(chunks, vectors, snippets, dir)
	m.lock = lock
	if err := m.loadFileHashes(); err != nil {
		slog.Warn("file-hash records unreadable, all files will reindex",
			slog.String("error", err.Error()))
	}
	return m, nil
}

// ChunkStore exposes a non-owning read reference for search engines.
func (m *Manager) ChunkStore() store.ChunkStore { return m.chunks }

// VectorStore exposes a non-owning read reference for search engines.
func (m *Manager) VectorStore() store.VectorStore { return m.vectors }

// SnippetStore exposes a non-owning read reference for search engines.
func (m *Manager) SnippetStore() store.SnippetStore { return m.snippets }

// Index atomically (from the caller's perspective) upserts a chunk and its
// vector. On failure, neither is persisted.
func (m *Manager) Index(ctx context.Context, chunk *model.Chunk, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(ctx, chunk, vector)
}

// IndexBatch indexes many chunk/vector pairs with the same atomicity per item.
func (m *Manager) IndexBatch(ctx context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if err := m.indexLocked(ctx, item.Chunk, item.Vector); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) indexLocked(ctx context.Context, chunk *model.Chunk, vector []float32) error {
	if chunk == nil {
		return kerrors.StoreError(kerrors.CodeInvalidInput, "nil chunk", nil)
	}
	if len(vector) != m.vectors.Dimensions() {
		return kerrors.DimensionMismatch(m.vectors.Dimensions(), len(vector))
	}

	// Vector first: its failure modes (dimension, closed store) are checked
	// up front, so a chunk upsert failure can roll the vector back and leave
	// neither persisted.
	if err := m.vectors.Add(ctx, chunk.ID, vector); err != nil {
		return err
	}
	if err := m.chunks.Upsert(ctx, chunk); err != nil {
		_ = m.vectors.Delete(ctx, []string{chunk.ID})
		return err
	}
	return nil
}

// InsertSnippets adds documentation snippets. Snippets sit outside the
// chunk/vector consistency invariant.
func (m *Manager) InsertSnippets(ctx context.Context, snippets []*model.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snippets.Insert(ctx, snippets)
}

// DeleteByPath removes every chunk, vector, and snippet at path and drops the
// path's file-hash record.
func (m *Manager) DeleteByPath(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunks, err := m.chunks.GetByPath(ctx, path)
	if err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	if err := m.chunks.DeleteByPath(ctx, path); err != nil {
		return err
	}
	if err := m.vectors.Delete(ctx, ids); err != nil {
		return err
	}
	if err := m.snippets.DeleteByPath(ctx, path); err != nil {
		return err
	}
	m.removeIndexedLocked(path)
	return nil
}

// IndexedHash returns the recorded file hash for path, or "" when the path
// has never been indexed.
func (m *Manager) IndexedHash(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[path]
}

// NeedsIndexing reports whether no file-hash record matches fileHash.
func (m *Manager) NeedsIndexing(fileHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashRefs[fileHash] == 0
}

// RecordIndexed remembers that path has been fully indexed at fileHash.
func (m *Manager) RecordIndexed(fileHash, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.hashes[path]; ok {
		m.hashRefs[old]--
		if m.hashRefs[old] <= 0 {
			delete(m.hashRefs, old)
		}
	}
	m.hashes[path] = fileHash
	m.hashRefs[fileHash]++
}

// RemoveIndexed drops the file-hash record for path.
func (m *Manager) RemoveIndexed(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeIndexedLocked(path)
}

func (m *Manager) removeIndexedLocked(path string) {
	if hash, ok := m.hashes[path]; ok {
		m.hashRefs[hash]--
		if m.hashRefs[hash] <= 0 {
			delete(m.hashRefs, hash)
		}
		delete(m.hashes, path)
	}
}

// Statistics returns store counts and the consistency flag.
func (m *Manager) Statistics(ctx context.Context) (Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunkCount, err := m.chunks.Count(ctx)
	if err != nil {
		return Statistics{}, err
	}
	vectorCount := m.vectors.Count()
	snippetCount, err := m.snippets.Count()
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		ChunkCount:   chunkCount,
		VectorCount:  vectorCount,
		SnippetCount: snippetCount,
		FileCount:    len(m.hashes),
		IsConsistent: chunkCount == vectorCount,
	}, nil
}

// Save durably flushes the vector index, checkpoints the chunk store, and
// writes the file-hash records.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if m.dir == "" {
		return nil // in-memory manager (tests)
	}
	if err := m.vectors.Save(filepath.Join(m.dir, VectorFile)); err != nil {
		return err
	}
	if cs, ok := m.chunks.(*store.SQLiteChunkStore); ok {
		if err := cs.Save(); err != nil {
			return err
		}
	}
	return m.saveFileHashes()
}

// Close saves and releases all stores and the directory lock.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if err := m.saveLocked(); err != nil {
		firstErr = err
	}
	if err := m.chunks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.vectors.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.snippets.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if m.lock != nil {
		if err := m.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// saveFileHashes writes the path -> fileHash records atomically.
func (m *Manager) saveFileHashes() error {
	path := filepath.Join(m.dir, FileHashesFile)
	data, err := json.MarshalIndent(m.hashes, "", "  ")
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("encode file hashes: %v", err), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("write file hashes: %v", err), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("rename file hashes: %v", err), err)
	}
	return nil
}

func (m *Manager) loadFileHashes() error {
	path := filepath.Join(m.dir, FileHashesFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("read file hashes: %v", err), err)
	}
	if err := json.Unmarshal(data, &m.hashes); err != nil {
		return kerrors.StoreError(kerrors.CodeCorruption, fmt.Sprintf("decode file hashes: %v", err), err)
	}
	for _, hash := range m.hashes {
		m.hashRefs[hash]++
	}
	return nil
}
