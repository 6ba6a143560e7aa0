// Package index provides a SQLite-backed full-text index over the
// current document's chunks, with optional FTS5 support. The index is
// held in memory and rebuilt wholesale every time a document is
// loaded; nothing survives a restart.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/chunker"
)

// MemoryDSN is the default in-memory database location.
const MemoryDSN = "file:ansuz?mode=memory&cache=shared"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
	idx        INTEGER PRIMARY KEY,
	chunk_id   TEXT NOT NULL,
	start_off  INTEGER NOT NULL,
	end_off    INTEGER NOT NULL,
	line_start INTEGER NOT NULL,
	line_end   INTEGER NOT NULL,
	content    TEXT NOT NULL DEFAULT ''
);
`

// Hit is a single full-text search result.
type Hit struct {
	ChunkIndex int    `json:"chunkIndex"`
	ChunkID    string `json:"chunkId"`
	Snippet    string `json:"snippet"`
}

// DB wraps a sql.DB with chunk-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens the SQLite database at dsn and applies the schema. A
// single connection is kept so that in-memory databases are shared
// across all statements.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Rebuild replaces the entire index with the given chunk sequence.
func (db *DB) Rebuild(chunks []chunker.Chunk) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks`); err != nil {
		return fmt.Errorf("index: clear chunks: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	for _, c := range chunks {
		if _, err := tx.Exec(
			`INSERT INTO chunks (idx, chunk_id, start_off, end_off, line_start, line_end, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Index, c.ID, c.Start, c.End, c.LineStart, c.LineEnd, c.Content,
		); err != nil {
			return fmt.Errorf("index: insert chunk %d: %w", c.Index, err)
		}
		if err := ftsInsert(tx, c.Index, c.ID, c.Content); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit rebuild: %w", err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
