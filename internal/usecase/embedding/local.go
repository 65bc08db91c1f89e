package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kailas-cloud/shopqa/internal/domain"
	"github.com/kailas-cloud/shopqa/internal/usecase/lexicon"
)

// DefaultDimensions is the width of local embeddings.
const DefaultDimensions = 512

const (
	unigramWeight = 1.0
	synonymWeight = 0.4
	bigramWeight  = 0.5
	trigramWeight = 0.3
)

// LocalEmbedder projects text into a fixed-width vector with signed feature hashing.
// Pure and deterministic; it never performs I/O.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local embedder. dims <= 0 selects DefaultDimensions.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &LocalEmbedder{dims: dims}
}

// Dimensions returns the vector width.
func (e *LocalEmbedder) Dimensions() int { return e.dims }

// Embed satisfies domain.Embedder. It never fails and reports zero tokens.
func (e *LocalEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: e.Vector(text)}, nil
}

// Vector computes the L2-normalized embedding of text. Text without content words yields a zero vector.
func (e *LocalEmbedder) Vector(text string) []float32 {
	vec := make([]float64, e.dims)
	words := lexicon.ContentWords(text)

	for i, w := range words {
		e.add(vec, "u:"+w, unigramWeight)
		if i > 0 {
			e.add(vec, "b:"+words[i-1]+"_"+w, bigramWeight)
		}
		runes := []rune("#" + w + "#")
		if len(runes) >= 5 {
			for j := 0; j+3 <= len(runes); j++ {
				e.add(vec, "t:"+string(runes[j:j+3]), trigramWeight)
			}
		}
	}
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}
	for _, s := range lexicon.Expand(words) {
		if !present[s] {
			e.add(vec, "u:"+s, synonymWeight)
		}
	}

	return normalize(vec)
}

func (e *LocalEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	idx := int(sum % uint32(e.dims))
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float64) []float32 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
