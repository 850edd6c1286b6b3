package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
)

// Embeddings are stored as JSON-encoded float32 arrays in a nullable TEXT
// column. JSON costs more bytes than a packed blob but keeps the column
// inspectable with plain SQL tooling, and the arrays are small (1536
// floats) and read only by semantic search.

// encodeEmbedding returns the value to bind for the embedding column:
// nil (SQL NULL) for an absent embedding, a JSON string otherwise.
func encodeEmbedding(vec []float32) (any, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("encoding embedding: %w", err)
	}
	return string(data), nil
}

// decodeEmbedding parses a scanned embedding column. A NULL column yields
// a nil slice.
func decodeEmbedding(col sql.NullString) ([]float32, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(col.String), &vec); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	return vec, nil
}

// cosineSimilarity computes the cosine of the angle between a and b:
// dot(a,b) / (|a|·|b|), in [-1, 1]. Mismatched lengths or a zero-norm
// vector yield 0, which thresholding then discards.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
