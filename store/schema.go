package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Document registry with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    language TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Graph entities, one row per entity per document
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    contexts JSON,
    UNIQUE(document_id, name)
);

-- Graph relation triples
CREATE TABLE IF NOT EXISTS relations (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    subject TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    object TEXT NOT NULL,
    context TEXT,
    UNIQUE(document_id, subject, relation_type, object)
);

-- Optional entity-name embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_entities USING vec0(
    entity_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Pipeline run audit log
CREATE TABLE IF NOT EXISTS run_log (
    id INTEGER PRIMARY KEY,
    document_id INTEGER REFERENCES documents(id) ON DELETE SET NULL,
    language TEXT,
    sentences INTEGER DEFAULT 0,
    candidates INTEGER DEFAULT 0,
    batches INTEGER DEFAULT 0,
    failed_batches INTEGER DEFAULT 0,
    triples INTEGER DEFAULT 0,
    discarded INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_entities_document ON entities(document_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_relations_document ON relations(document_id);
CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(relation_type);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`, embeddingDim)
}
