package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/model"
)

// SQLiteChunkStore implements ChunkStore and ConformanceIndex on SQLite with
// an FTS5 virtual table over chunk content and symbols. WAL mode allows a
// search process to read while the indexer writes.
type SQLiteChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Compile-time interface checks.
var (
	_ ChunkStore       = (*SQLiteChunkStore)(nil)
	_ ConformanceIndex = (*SQLiteChunkStore)(nil)
)

// NewSQLiteChunkStore opens (or creates) a chunk store at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteChunkStore(path string) (*SQLiteChunkStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("create index directory: %v", err), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("open chunk store: %v", err), err)
	}

	// Single writer; modernc.org/sqlite needs pragmas set via statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("set pragma: %v", err), err)
		}
	}

	s := &SQLiteChunkStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("initialize schema: %v", err), err)
	}
	return s, nil
}

func (s *SQLiteChunkStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id           TEXT PRIMARY KEY,
		path         TEXT NOT NULL,
		content      TEXT NOT NULL,
		start_line   INTEGER NOT NULL,
		end_line     INTEGER NOT NULL,
		kind         TEXT NOT NULL,
		symbols      TEXT NOT NULL DEFAULT '[]',
		refs         TEXT NOT NULL DEFAULT '[]',
		conformances TEXT NOT NULL DEFAULT '[]',
		file_hash    TEXT NOT NULL,
		doc_comment  TEXT NOT NULL DEFAULT '',
		signature    TEXT NOT NULL DEFAULT '',
		breadcrumb   TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);

	-- FTS5 over pre-tokenized content and symbols. chunk_id is stored but
	-- not searchable.
	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		content,
		symbols,
		tokenize='unicode61'
	);

	-- Reverse conformance index for protocol -> implementing types lookup.
	CREATE TABLE IF NOT EXISTS conformances (
		chunk_id TEXT NOT NULL,
		name     TEXT NOT NULL COLLATE NOCASE,
		PRIMARY KEY (chunk_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_conformances_name ON conformances(name);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the chunk with the given id, or nil if absent.
func (s *SQLiteChunkStore) Get(ctx context.Context, id string) (*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx, selectChunkColumns+" FROM chunks c WHERE c.id = ?", id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("get chunk: %v", err), err)
	}
	return chunk, nil
}

// GetByIDs batch-fetches chunks, folding duplicate ids to a single row.
func (s *SQLiteChunkStore) GetByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error) {
	if len(ids) == 0 {
		return []*model.Chunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	placeholders := make([]string, len(unique))
	args := make([]any, len(unique))
	for i, id := range unique {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("%s FROM chunks c WHERE c.id IN (%s)",
		selectChunkColumns, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("get chunks: %v", err), err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("scan chunk: %v", err), err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Insert adds a chunk. Idempotent by id.
func (s *SQLiteChunkStore) Insert(ctx context.Context, chunk *model.Chunk) error {
	return s.Upsert(ctx, chunk)
}

// Upsert inserts or replaces a chunk by id, keeping the FTS and conformance
// tables in step within one transaction.
func (s *SQLiteChunkStore) Upsert(ctx context.Context, chunk *model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(ctx, chunk)
}

// UpsertBatch inserts many chunks in a single transaction.
func (s *SQLiteChunkStore) UpsertBatch(ctx context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("begin transaction: %v", err), err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, chunk := range chunks {
		if err := upsertChunkTx(ctx, tx, chunk); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteChunkStore) upsertLocked(ctx context.Context, chunk *model.Chunk) error {
	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("begin transaction: %v", err), err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertChunkTx(ctx, tx, chunk); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertChunkTx(ctx context.Context, tx *sql.Tx, chunk *model.Chunk) error {
	symbols, _ := json.Marshal(chunk.Symbols)
	refs, _ := json.Marshal(chunk.References)
	confs, _ := json.Marshal(chunk.Conformances)

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, path, content, start_line, end_line, kind, symbols, refs,
		 conformances, file_hash, doc_comment, signature, breadcrumb, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.Path, chunk.Content, chunk.StartLine, chunk.EndLine,
		string(chunk.Kind), string(symbols), string(refs), string(confs),
		chunk.FileHash, chunk.DocComment, chunk.Signature, chunk.Breadcrumb,
		chunk.Language,
	); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("upsert chunk %s: %v", chunk.ID, err), err)
	}

	// FTS5 virtual tables do not support REPLACE; delete then insert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, chunk.ID); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("clear fts row %s: %v", chunk.ID, err), err)
	}
	content := strings.Join(TokenizeCode(chunk.Content), " ")
	symbolText := strings.Join(TokenizeCode(strings.Join(chunk.Symbols, " ")), " ")
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunks_fts (chunk_id, content, symbols) VALUES (?, ?, ?)`,
		chunk.ID, content, symbolText,
	); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("index chunk %s: %v", chunk.ID, err), err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conformances WHERE chunk_id = ?`, chunk.ID); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("clear conformances %s: %v", chunk.ID, err), err)
	}
	for _, name := range chunk.Conformances {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO conformances (chunk_id, name) VALUES (?, ?)`,
			chunk.ID, name,
		); err != nil {
			return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("index conformance %s: %v", chunk.ID, err), err)
		}
	}
	return nil
}

// GetByPath returns every chunk at path, ordered by start line.
func (s *SQLiteChunkStore) GetByPath(ctx context.Context, path string) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		selectChunkColumns+" FROM chunks c WHERE c.path = ? ORDER BY c.start_line", path)
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("get chunks by path: %v", err), err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("scan chunk: %v", err), err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteByPath removes every chunk at path along with its FTS and
// conformance rows.
func (s *SQLiteChunkStore) DeleteByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("begin transaction: %v", err), err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE path = ?)`, path); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("delete fts rows for %s: %v", path, err), err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conformances WHERE chunk_id IN (SELECT id FROM chunks WHERE path = ?)`, path); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("delete conformances for %s: %v", path, err), err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("delete chunks for %s: %v", path, err), err)
	}
	return tx.Commit()
}

// SearchFTS returns the top-limit chunks for query scored by BM25.
// FTS5 bm25() returns negative values where lower is better; scores are
// negated so higher is better. Ties break on rowid, which is stable for
// identical store state.
func (s *SQLiteChunkStore) SearchFTS(ctx context.Context, query string, limit int) ([]FTSResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []FTSResult{}, nil
	}

	tokens := TokenizeCode(query)
	if len(tokens) == 0 {
		return []FTSResult{}, nil
	}
	// OR semantics: a chunk matching any query term is a candidate; BM25
	// ranks multi-term matches higher.
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	match := strings.Join(quoted, " OR ")

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, bm25(chunks_fts) AS score
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY score, rowid
		LIMIT ?`, match, limit)
	if err != nil {
		// Ranking must not crash on punctuation: FTS syntax errors degrade
		// to an empty ranked list.
		if isFTSSyntaxError(err) {
			slog.Debug("fts query rejected", slog.String("query", query), slog.String("error", err.Error()))
			return []FTSResult{}, nil
		}
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("fts search: %v", err), err)
	}
	defer rows.Close()

	var results []FTSResult
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("scan fts result: %v", err), err)
		}
		results = append(results, FTSResult{ID: id, Score: -score})
	}
	return results, rows.Err()
}

// TermFrequency returns the number of distinct chunks whose content or
// symbols contain term exactly. Used by the rare-term boost.
func (s *SQLiteChunkStore) TermFrequency(ctx context.Context, term string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT chunk_id) FROM chunks_fts WHERE chunks_fts MATCH ?`,
		`"`+strings.ReplaceAll(term, `"`, "")+`"`,
	).Scan(&count)
	if err != nil {
		if isFTSSyntaxError(err) {
			return 0, nil
		}
		return 0, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("term frequency: %v", err), err)
	}
	return count, nil
}

// FindConformingTypes returns chunks declaring protocolName among their
// conformances. Concrete types (class/struct/actor/enum) rank before
// extensions; within a priority band, path then start line order is stable.
func (s *SQLiteChunkStore) FindConformingTypes(ctx context.Context, protocolName string, limit int) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}
	if protocolName == "" || limit <= 0 {
		return []*model.Chunk{}, nil
	}

	rows, err := s.db.QueryContext(ctx, selectChunkColumns+`
		FROM chunks c
		JOIN conformances cf ON cf.chunk_id = c.id
		WHERE cf.name = ?
		ORDER BY
			CASE c.kind
				WHEN 'class' THEN 0
				WHEN 'struct' THEN 0
				WHEN 'actor' THEN 0
				WHEN 'enum' THEN 0
				WHEN 'extension' THEN 1
				ELSE 2
			END,
			c.path, c.start_line
		LIMIT ?`, protocolName, limit)
	if err != nil {
		return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("find conforming types: %v", err), err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("scan chunk: %v", err), err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Count returns the number of chunks in the store.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, kerrors.StoreError(kerrors.CodeIO, fmt.Sprintf("count chunks: %v", err), err)
	}
	return count, nil
}

// Save forces a WAL checkpoint so all changes reach the main database file.
func (s *SQLiteChunkStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kerrors.StoreError(kerrors.CodeIO, "chunk store is closed", nil)
	}
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close checkpoints and closes the database. Idempotent.
func (s *SQLiteChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

const selectChunkColumns = `SELECT c.id, c.path, c.content, c.start_line, c.end_line, c.kind,
	c.symbols, c.refs, c.conformances, c.file_hash, c.doc_comment, c.signature,
	c.breadcrumb, c.language`

// rowScanner abstracts sql.Row and sql.Rows for scanChunk.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*model.Chunk, error) {
	var c model.Chunk
	var kind, symbols, refs, confs string
	if err := row.Scan(
		&c.ID, &c.Path, &c.Content, &c.StartLine, &c.EndLine, &kind,
		&symbols, &refs, &confs, &c.FileHash, &c.DocComment, &c.Signature,
		&c.Breadcrumb, &c.Language,
	); err != nil {
		return nil, err
	}
	c.Kind = model.Kind(kind)
	_ = json.Unmarshal([]byte(symbols), &c.Symbols)
	_ = json.Unmarshal([]byte(refs), &c.References)
	_ = json.Unmarshal([]byte(confs), &c.Conformances)
	return &c, nil
}

// isFTSSyntaxError reports whether err is an FTS5 query-syntax failure, as
// opposed to an I/O or corruption failure.
func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error") ||
		strings.Contains(msg, "malformed MATCH")
}
