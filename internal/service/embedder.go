package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DefaultEmbeddingDimension is the vector size produced when no dimension is
// configured.
const DefaultEmbeddingDimension = 128

// EmbeddingProvider generates an embedding vector for canonical text.
// The deterministic generator below is the default implementation; a real
// model client (see internal/openai) can be substituted behind the same
// interface.
type EmbeddingProvider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DeterministicEmbedder derives a reproducible pseudo-vector from content
// bytes. Identical content always yields a bit-identical vector, across
// calls and process restarts. It is a placeholder with a stable contract,
// not a semantically meaningful embedding.
type DeterministicEmbedder struct {
	dimension int
}

// NewDeterministicEmbedder creates an embedder producing vectors of the
// given dimension. Non-positive dimensions fall back to the default.
func NewDeterministicEmbedder(dimension int) *DeterministicEmbedder {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &DeterministicEmbedder{dimension: dimension}
}

// Dimension returns the configured vector size
func (e *DeterministicEmbedder) Dimension() int {
	return e.dimension
}

// GenerateEmbedding implements EmbeddingProvider. The vector is built by
// digesting the content into a seed, then expanding seed‖counter into a
// byte stream and mapping byte pairs to floats in [-1,1].
func (e *DeterministicEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	seed := sha256.Sum256([]byte(text))

	vector := make([]float32, 0, e.dimension)
	var counter uint32

	for len(vector) < e.dimension {
		block := make([]byte, len(seed)+4)
		copy(block, seed[:])
		binary.BigEndian.PutUint32(block[len(seed):], counter)
		digest := sha256.Sum256(block)

		for i := 0; i+1 < len(digest) && len(vector) < e.dimension; i += 2 {
			raw := binary.BigEndian.Uint16(digest[i : i+2])
			// Map [0, 65535] onto [-1, 1]
			vector = append(vector, float32(raw)/32767.5-1.0)
		}

		counter++
	}

	return vector, nil
}
