// Package index implements an in-memory flat vector index with brute-force
// cosine similarity search. One index is built per session from the chunks
// of its document and is immutable afterwards.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/hireloop/interviewd/internal/domain"
)

// Index stores one unit-normalized vector per chunk, keyed by chunk ordinal.
// Safe for concurrent readers after Build.
type Index struct {
	chunks  []domain.Chunk
	vectors [][]float32 // normalized, aligned with chunks
	dim     int
}

var _ domain.VectorIndex = (*Index)(nil)

// Build creates an index from chunks and their embedding vectors. Every
// vector must have the same dimension; a mismatch is a hard error because it
// indicates a provider contract violation, not a user mistake.
func Build(chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build index: %w", domain.ErrEmptyInput)
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("build index: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("build index: zero-length vector for chunk 0: %w", domain.ErrVectorDimMismatch)
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf(
				"build index: chunk %d has dimension %d, want %d: %w",
				chunks[i].Ordinal, len(v), dim, domain.ErrVectorDimMismatch,
			)
		}
		normalized[i] = normalize(v)
	}

	idx := &Index{
		chunks:  make([]domain.Chunk, len(chunks)),
		vectors: normalized,
		dim:     dim,
	}
	copy(idx.chunks, chunks)
	return idx, nil
}

// Query returns the top-k chunks by cosine similarity to the given vector,
// ties broken by lower chunk ordinal so rankings are reproducible.
func (idx *Index) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != idx.dim {
		return nil, fmt.Errorf(
			"query: vector dimension %d, index dimension %d: %w",
			len(vector), idx.dim, domain.ErrVectorDimMismatch,
		)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalize(vector)
	scored := make([]domain.ScoredChunk, len(idx.chunks))
	for i, v := range idx.vectors {
		scored[i] = domain.ScoredChunk{Chunk: idx.chunks[i], Score: dot(q, v)}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Ordinal < scored[j].Chunk.Ordinal
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Dimension returns the vector dimension the index was built with.
func (idx *Index) Dimension() int { return idx.dim }

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// normalize returns a unit-length copy so similarity reduces to a dot
// product. Zero vectors are returned as-is and score 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
