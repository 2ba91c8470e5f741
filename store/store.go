package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash"`
	PageCount   int    `json:"page_count"`
	RecordCount int    `json:"record_count"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Occupation represents a row in the occupations table.
type Occupation struct {
	ID          int64  `json:"id"`
	Code        string `json:"nco_code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Division    string `json:"division,omitempty"`
	DocumentID  *int64 `json:"document_id,omitempty"`
}

// Transition is a directed edge in the transitions table.
type Transition struct {
	From   string `json:"from_nco"`
	To     string `json:"to_nco"`
	Reason string `json:"reason,omitempty"`
}

// Run represents a row in the extraction_runs audit table.
type Run struct {
	ID         string `json:"id"`
	Files      int    `json:"files"`
	Records    int    `json:"records"`
	Errors     int    `json:"errors"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// MatchLog represents a row in the match_log audit table.
type MatchLog struct {
	Query   string  `json:"query"`
	TopCode string  `json:"top_code"`
	Score   float64 `json:"score"`
	Results int     `json:"results"`
}

// SearchResult holds an occupation with its retrieval score.
type SearchResult struct {
	OccupationID int64   `json:"occupation_id"`
	Code         string  `json:"nco_code"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Division     string  `json:"division,omitempty"`
	Score        float64 `json:"score"`
}

// Store wraps the SQLite database for all skillweave persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record. Returns the document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	// LastInsertId is meaningless when the upsert takes the UPDATE branch,
	// so the row ID comes back via RETURNING on either branch.
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (path, filename, content_hash, page_count, record_count, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			content_hash = excluded.content_hash,
			page_count = excluded.page_count,
			record_count = excluded.record_count,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, doc.Path, doc.Filename, doc.ContentHash, doc.PageCount, doc.RecordCount, doc.Status).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocumentByPath retrieves a document by its file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, filename, content_hash, page_count, record_count, status, created_at, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&doc.ID, &doc.Path, &doc.Filename, &doc.ContentHash,
		&doc.PageCount, &doc.RecordCount, &doc.Status,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, filename, content_hash, page_count, record_count, status, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.Filename, &d.ContentHash,
			&d.PageCount, &d.RecordCount, &d.Status,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// UpdateDocumentCounts records how many pages were read and how many
// records survived validation for a document.
func (s *Store) UpdateDocumentCounts(ctx context.Context, id int64, pages, records int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET page_count = ?, record_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		pages, records, id)
	return err
}

// DeleteDocument removes a document and every occupation extracted from it.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Delete vec embeddings for this document's occupations
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_occupations WHERE occupation_id IN (
				SELECT id FROM occupations WHERE document_id = ?
			)`, id); err != nil {
			return err
		}

		// Delete occupations (triggers will clean up FTS)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM occupations WHERE document_id = ?", id); err != nil {
			return err
		}

		// Delete the document
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE id = ?", id); err != nil {
			return err
		}

		return nil
	})
}

// --- Occupation operations ---

// UpsertOccupations inserts a batch of occupation records and returns
// their row IDs. A code already present keeps its existing row (first
// extraction wins); the returned ID then refers to that row.
func (s *Store) UpsertOccupations(ctx context.Context, occs []Occupation) ([]int64, error) {
	ids := make([]int64, len(occs))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO occupations (nco_code, title, description, division, document_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(nco_code) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		lookup, err := tx.PrepareContext(ctx,
			"SELECT id FROM occupations WHERE nco_code = ?")
		if err != nil {
			return err
		}
		defer lookup.Close()

		for i, o := range occs {
			res, err := stmt.ExecContext(ctx,
				o.Code, o.Title, o.Description, o.Division, o.DocumentID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				// Conflict: the code exists, resolve its row ID.
				if err := lookup.QueryRowContext(ctx, o.Code).Scan(&ids[i]); err != nil {
					return err
				}
				continue
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

// GetOccupation retrieves an occupation by its NCO code.
// Returns sql.ErrNoRows when the code is not present.
func (s *Store) GetOccupation(ctx context.Context, code string) (*Occupation, error) {
	o := &Occupation{}
	var division sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nco_code, title, description, division, document_id
		FROM occupations WHERE nco_code = ?
	`, code).Scan(&o.ID, &o.Code, &o.Title, &o.Description, &division, &o.DocumentID)
	if err != nil {
		return nil, err
	}
	o.Division = division.String
	return o, nil
}

// ListOccupations returns all occupations in insertion order.
func (s *Store) ListOccupations(ctx context.Context) ([]Occupation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nco_code, title, description, division, document_id
		FROM occupations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occs []Occupation
	for rows.Next() {
		var o Occupation
		var division sql.NullString
		if err := rows.Scan(&o.ID, &o.Code, &o.Title, &o.Description,
			&division, &o.DocumentID); err != nil {
			return nil, err
		}
		o.Division = division.String
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

// CountOccupations returns the number of stored occupation records.
func (s *Store) CountOccupations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM occupations").Scan(&n)
	return n, err
}

// ClearOccupations removes every occupation record and its embeddings.
// Used for forced full rebuilds.
func (s *Store) ClearOccupations(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_occupations"); err != nil {
			return err
		}
		// Triggers clean up the FTS index.
		if _, err := tx.ExecContext(ctx, "DELETE FROM occupations"); err != nil {
			return err
		}
		return nil
	})
}

// MissingEmbeddings returns occupations that have no vector embedding
// yet, e.g. after an ingest that ran without an embedding provider.
func (s *Store) MissingEmbeddings(ctx context.Context) ([]Occupation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT occupation_id FROM vec_occupations")
	if err != nil {
		return nil, err
	}
	embedded := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		embedded[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	all, err := s.ListOccupations(ctx)
	if err != nil {
		return nil, err
	}
	var missing []Occupation
	for _, o := range all {
		if !embedded[o.ID] {
			missing = append(missing, o)
		}
	}
	return missing, nil
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for an occupation.
func (s *Store) InsertEmbedding(ctx context.Context, occupationID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_occupations (occupation_id, embedding) VALUES (?, ?)",
		occupationID, serializeFloat32(embedding))
	return err
}

// VectorSearch performs a KNN search returning the top-k nearest occupations.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.occupation_id, v.distance,
			o.nco_code, o.title, o.description, COALESCE(o.division, '')
		FROM vec_occupations v
		JOIN occupations o ON o.id = v.occupation_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.OccupationID, &distance,
			&r.Code, &r.Title, &r.Description, &r.Division); err != nil {
			return nil, err
		}
		// Convert distance to similarity score (1 - distance for cosine)
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a full-text search using FTS5 BM25 ranking.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			o.nco_code, o.title, o.description, COALESCE(o.division, '')
		FROM occupations_fts f
		JOIN occupations o ON o.id = f.rowid
		WHERE occupations_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		if err := rows.Scan(&r.OccupationID, &rank,
			&r.Code, &r.Title, &r.Description, &r.Division); err != nil {
			return nil, err
		}
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Skill operations ---

// ReplaceSkills swaps the whole skill table for the given mapping of
// NCO code to skill names. Returns the number of rows written.
func (s *Store) ReplaceSkills(ctx context.Context, skills map[string][]string) (int, error) {
	var count int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM skills"); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR IGNORE INTO skills (nco_code, skill) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		codes := make([]string, 0, len(skills))
		for code := range skills {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			for _, skill := range skills[code] {
				res, err := stmt.ExecContext(ctx, code, skill)
				if err != nil {
					return err
				}
				if n, err := res.RowsAffected(); err == nil {
					count += int(n)
				}
			}
		}
		return nil
	})
	return count, err
}

// SkillsFor returns the skill names required for an occupation code,
// sorted alphabetically.
func (s *Store) SkillsFor(ctx context.Context, code string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT skill FROM skills WHERE nco_code = ? ORDER BY skill", code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []string
	for rows.Next() {
		var sk string
		if err := rows.Scan(&sk); err != nil {
			return nil, err
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// --- Transition operations ---

// ReplaceTransitions swaps the whole transition table for the given
// edges. Returns the number of rows written.
func (s *Store) ReplaceTransitions(ctx context.Context, ts []Transition) (int, error) {
	var count int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM transitions"); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR IGNORE INTO transitions (from_code, to_code, reason) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range ts {
			res, err := stmt.ExecContext(ctx, t.From, t.To, t.Reason)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				count += int(n)
			}
		}
		return nil
	})
	return count, err
}

// TransitionsFrom returns the outgoing transition edges for a code.
func (s *Store) TransitionsFrom(ctx context.Context, code string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_code, to_code, COALESCE(reason, '')
		FROM transitions WHERE from_code = ? ORDER BY to_code
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// AllTransitions returns every transition edge in the database.
func (s *Store) AllTransitions(ctx context.Context) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_code, to_code, COALESCE(reason, '')
		FROM transitions ORDER BY from_code, to_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]Transition, error) {
	var ts []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.From, &t.To, &t.Reason); err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

// --- Run audit log ---

// InsertRun records the start of an extraction run.
func (s *Store) InsertRun(ctx context.Context, id string, files int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO extraction_runs (id, files) VALUES (?, ?)", id, files)
	return err
}

// FinishRun closes out an extraction run with its final counts.
func (s *Store) FinishRun(ctx context.Context, id string, records, errCount int) error {
	status := "ok"
	if errCount > 0 {
		status = "partial"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE extraction_runs
		SET records = ?, errors = ?, status = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, records, errCount, status, id)
	return err
}

// GetRun retrieves an extraction run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, files, records, errors, status, started_at, COALESCE(finished_at, '')
		FROM extraction_runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Files, &r.Records, &r.Errors, &r.Status, &r.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	r.FinishedAt = finished.String
	return r, nil
}

// --- Match audit log ---

// LogMatch writes an entry to the match audit log. The raw query is
// stored alongside its SHA-256 hash for dedup-friendly analytics.
func (s *Store) LogMatch(ctx context.Context, m MatchLog) error {
	hash := sha256.Sum256([]byte(m.Query))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_log (query_hash, query, top_code, score, results)
		VALUES (?, ?, ?, ?, ?)
	`, hex.EncodeToString(hash[:]), m.Query, m.TopCode, m.Score, m.Results)
	return err
}

// --- Stats ---

// DatasetStats holds counts of key database objects.
type DatasetStats struct {
	Documents   int            `json:"documents"`
	Occupations int            `json:"occupations"`
	Embeddings  int            `json:"embeddings"`
	Skills      int            `json:"skills"`
	Transitions int            `json:"transitions"`
	Runs        int            `json:"runs"`
	Divisions   map[string]int `json:"divisions,omitempty"`
}

// Stats returns counts of documents, occupations, embeddings, skills,
// transitions, and runs, plus a per-division occupation breakdown.
func (s *Store) Stats(ctx context.Context) (*DatasetStats, error) {
	stats := &DatasetStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM occupations", &stats.Occupations},
		{"SELECT COUNT(*) FROM vec_occupations", &stats.Embeddings},
		{"SELECT COUNT(*) FROM skills", &stats.Skills},
		{"SELECT COUNT(*) FROM transitions", &stats.Transitions},
		{"SELECT COUNT(*) FROM extraction_runs", &stats.Runs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(division, ''), COUNT(*)
		FROM occupations GROUP BY division
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.Divisions = make(map[string]int)
	for rows.Next() {
		var div string
		var n int
		if err := rows.Scan(&div, &n); err != nil {
			return nil, err
		}
		stats.Divisions[div] = n
	}
	return stats, rows.Err()
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
