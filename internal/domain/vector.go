package domain

import "math"

// Cosine returns the cosine similarity of a and b.
// Mismatched dimensions or zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ScanSimilarity scores the first scanLimit docs against vec, in document order.
// scanLimit <= 0 scans everything.
func ScanSimilarity(vec []float32, docs []Document, scanLimit int) []ScoredDocument {
	if scanLimit > 0 && len(docs) > scanLimit {
		docs = docs[:scanLimit]
	}
	out := make([]ScoredDocument, len(docs))
	for i := range docs {
		out[i] = ScoredDocument{Document: docs[i], Score: Cosine(vec, docs[i].Embedding)}
	}
	return out
}
