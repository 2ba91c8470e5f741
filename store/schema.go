package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Source PDF registry with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    page_count INTEGER DEFAULT 0,
    record_count INTEGER DEFAULT 0,
    status TEXT DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Extracted occupation records. nco_code is unique: the first extracted
-- record for a code wins, matching pipeline deduplication.
CREATE TABLE IF NOT EXISTS occupations (
    id INTEGER PRIMARY KEY,
    nco_code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    division TEXT,
    document_id INTEGER REFERENCES documents(id),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_occupations USING vec0(
    occupation_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Full-text search via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS occupations_fts USING fts5(
    title,
    description,
    content='occupations',
    content_rowid='id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep index in sync
CREATE TRIGGER IF NOT EXISTS occupations_ai AFTER INSERT ON occupations BEGIN
    INSERT INTO occupations_fts(rowid, title, description) VALUES (new.id, new.title, new.description);
END;
CREATE TRIGGER IF NOT EXISTS occupations_ad AFTER DELETE ON occupations BEGIN
    INSERT INTO occupations_fts(occupations_fts, rowid, title, description) VALUES ('delete', old.id, old.title, old.description);
END;
CREATE TRIGGER IF NOT EXISTS occupations_au AFTER UPDATE ON occupations BEGIN
    INSERT INTO occupations_fts(occupations_fts, rowid, title, description) VALUES ('delete', old.id, old.title, old.description);
    INSERT INTO occupations_fts(rowid, title, description) VALUES (new.id, new.title, new.description);
END;

-- Skill requirements per occupation code
CREATE TABLE IF NOT EXISTS skills (
    id INTEGER PRIMARY KEY,
    nco_code TEXT NOT NULL,
    skill TEXT NOT NULL,
    UNIQUE(nco_code, skill)
);

-- Directed career transition edges
CREATE TABLE IF NOT EXISTS transitions (
    id INTEGER PRIMARY KEY,
    from_code TEXT NOT NULL,
    to_code TEXT NOT NULL,
    reason TEXT,
    UNIQUE(from_code, to_code)
);

-- Extraction run audit log
CREATE TABLE IF NOT EXISTS extraction_runs (
    id TEXT PRIMARY KEY,
    files INTEGER DEFAULT 0,
    records INTEGER DEFAULT 0,
    errors INTEGER DEFAULT 0,
    status TEXT DEFAULT 'running',
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

-- Match query audit log
CREATE TABLE IF NOT EXISTS match_log (
    id INTEGER PRIMARY KEY,
    query_hash TEXT NOT NULL,
    query TEXT NOT NULL,
    top_code TEXT,
    score REAL,
    results INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_occupations_division ON occupations(division);
CREATE INDEX IF NOT EXISTS idx_occupations_document ON occupations(document_id);
CREATE INDEX IF NOT EXISTS idx_skills_code ON skills(nco_code);
CREATE INDEX IF NOT EXISTS idx_transitions_from ON transitions(from_code);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`, embeddingDim)
}
