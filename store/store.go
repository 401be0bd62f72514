// Package store persists extraction results in SQLite. Entity-name
// embeddings live in a sqlite-vec virtual table so graphs can be queried
// by semantic similarity after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/davepan/kgraph/graph"
)

func init() {
	sqlite_vec.Auto()
}

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	Language    string `json:"language"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Entity represents a row in the entities table.
type Entity struct {
	ID         int64    `json:"id"`
	DocumentID int64    `json:"document_id"`
	Name       string   `json:"name"`
	EntityType string   `json:"entity_type"`
	Frequency  int      `json:"frequency"`
	Contexts   []string `json:"contexts,omitempty"`
}

// Relation represents a row in the relations table.
type Relation struct {
	ID           int64  `json:"id"`
	DocumentID   int64  `json:"document_id"`
	Subject      string `json:"subject"`
	RelationType string `json:"relation_type"`
	Object       string `json:"object"`
	Context      string `json:"context,omitempty"`
}

// RunRecord is an entry in the pipeline run audit log.
type RunRecord struct {
	DocumentID    int64  `json:"document_id"`
	Language      string `json:"language"`
	Sentences     int    `json:"sentences"`
	Candidates    int    `json:"candidates"`
	Batches       int    `json:"batches"`
	FailedBatches int    `json:"failed_batches"`
	Triples       int    `json:"triples"`
	Discarded     int    `json:"discarded"`
}

// SimilarEntity is a KNN search hit over entity-name embeddings.
type SimilarEntity struct {
	EntityID   int64   `json:"entity_id"`
	Name       string  `json:"name"`
	EntityType string  `json:"entity_type"`
	Frequency  int     `json:"frequency"`
	Score      float64 `json:"score"`
}

// Store wraps the SQLite database for all kgraph persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
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

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, filename, format, content_hash, language, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			language = excluded.language,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, doc.Path, doc.Filename, doc.Format, doc.ContentHash, doc.Language, doc.Status)
	if err != nil {
		return 0, err
	}

	// last_insert_rowid is untouched by the UPDATE arm of the upsert and
	// may carry the rowid of an unrelated insert on the pooled connection,
	// so the ID is always resolved by path.
	var id int64
	row := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", doc.Path)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocumentByPath retrieves a document by its file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, filename, format, content_hash, language, status, created_at, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&doc.ID, &doc.Path, &doc.Filename, &doc.Format,
		&doc.ContentHash, &doc.Language, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SetDocumentStatus updates a document's processing status.
func (s *Store) SetDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, id)
	return err
}

// --- Graph operations ---

// SaveGraph replaces a document's stored graph with the given one inside a
// single transaction. Prior rows, including stale embeddings, are removed.
func (s *Store) SaveGraph(ctx context.Context, docID int64, doc graph.Document) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_entities WHERE entity_id IN (
				SELECT id FROM entities WHERE document_id = ?
			)`, docID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM entities WHERE document_id = ?", docID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM relations WHERE document_id = ?", docID); err != nil {
			return err
		}

		for _, e := range doc.Entities {
			contexts, err := json.Marshal(e.Contexts)
			if err != nil {
				return fmt.Errorf("marshalling contexts for %q: %w", e.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO entities (document_id, name, entity_type, frequency, contexts)
				VALUES (?, ?, ?, ?, ?)
			`, docID, e.Name, string(e.Type), e.Frequency, string(contexts)); err != nil {
				return fmt.Errorf("inserting entity %q: %w", e.Name, err)
			}
		}

		for _, r := range doc.Relations {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO relations (document_id, subject, relation_type, object, context)
				VALUES (?, ?, ?, ?, ?)
			`, docID, r.Subject, r.Relation, r.Object, r.Context); err != nil {
				return fmt.Errorf("inserting relation %q-%q-%q: %w", r.Subject, r.Relation, r.Object, err)
			}
		}

		return nil
	})
}

// GetEntities returns a document's stored entities ordered by descending
// frequency, then insertion order.
func (s *Store) GetEntities(ctx context.Context, docID int64) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, name, entity_type, frequency, contexts
		FROM entities WHERE document_id = ?
		ORDER BY frequency DESC, id ASC
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var contexts sql.NullString
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Name, &e.EntityType, &e.Frequency, &contexts); err != nil {
			return nil, err
		}
		if contexts.Valid && contexts.String != "" {
			if err := json.Unmarshal([]byte(contexts.String), &e.Contexts); err != nil {
				return nil, fmt.Errorf("unmarshalling contexts for entity %d: %w", e.ID, err)
			}
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// GetRelations returns a document's stored relation triples in insertion order.
func (s *Store) GetRelations(ctx context.Context, docID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, subject, relation_type, object, COALESCE(context, '')
		FROM relations WHERE document_id = ?
		ORDER BY id ASC
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Subject, &r.RelationType, &r.Object, &r.Context); err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

// --- Embedding operations ---

// UpsertEntityEmbedding stores the embedding for an entity name.
func (s *Store) UpsertEntityEmbedding(ctx context.Context, entityID int64, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), s.embeddingDim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_entities (entity_id, embedding) VALUES (?, ?)",
		entityID, serializeFloat32(embedding))
	return err
}

// SimilarEntities performs a KNN search over entity-name embeddings and
// returns the top-k nearest entities.
func (s *Store) SimilarEntities(ctx context.Context, queryEmbedding []float32, k int) ([]SimilarEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.entity_id, v.distance, e.name, e.entity_type, e.frequency
		FROM vec_entities v
		JOIN entities e ON e.id = v.entity_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SimilarEntity
	for rows.Next() {
		var r SimilarEntity
		var distance float64
		if err := rows.Scan(&r.EntityID, &distance, &r.Name, &r.EntityType, &r.Frequency); err != nil {
			return nil, err
		}
		// Convert distance to a similarity-style score.
		r.Score = 1.0 / (1.0 + distance)
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Run log ---

// LogRun records a pipeline run in the audit log.
func (s *Store) LogRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_log (document_id, language, sentences, candidates, batches, failed_batches, triples, discarded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.DocumentID, rec.Language, rec.Sentences, rec.Candidates,
		rec.Batches, rec.FailedBatches, rec.Triples, rec.Discarded)
	return err
}

// --- Helpers ---

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 encodes a float32 slice into the little-endian byte
// format sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
