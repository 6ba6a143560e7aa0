package index

import "github.com/starford/ansuz/internal/chunker"

// ChunkIndex defines the interface for chunk indexing operations.
// Consumers should depend on this interface rather than the concrete
// *DB type to facilitate testing with mocks.
type ChunkIndex interface {
	Rebuild(chunks []chunker.Chunk) error
	Search(query string, limit int) ([]Hit, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies ChunkIndex at compile time.
var _ ChunkIndex = (*DB)(nil)
