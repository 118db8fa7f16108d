package domain

// Chunk is a bounded substring of a document, the unit indexed for retrieval.
// Ordinal is the chunk's position in document order, starting at 0.
type Chunk struct {
	Ordinal int
	Text    string
	Start   int
	End     int
}

// ScoredChunk pairs a chunk with its similarity score for one query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// VectorIndex answers nearest-neighbor queries over the chunks of one
// document. Implementations are immutable after build and safe for
// concurrent readers.
type VectorIndex interface {
	// Query returns up to k chunks ordered by descending similarity,
	// ties broken by lower chunk ordinal.
	Query(vector []float32, k int) ([]ScoredChunk, error)
	// Dimension returns the vector dimension the index was built with.
	Dimension() int
	// Len returns the number of indexed chunks.
	Len() int
}
