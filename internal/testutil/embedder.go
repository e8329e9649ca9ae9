package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockEmbedder provides deterministic embedding vectors without network
// access. By default every text maps to a hash-derived unit vector (same
// text, same vector). Explicit vectors can be registered to control cosine
// similarity precisely.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder emitting vectors of the given width.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector pins the vector returned for an exact text.
func (e *MockEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// RegisterEmbedder registers the mock as a Genkit embedder named
// "mock/test-embedder".
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		var sb strings.Builder
		for _, p := range doc.Content {
			if p.Kind == ai.PartText {
				sb.WriteString(p.Text)
			}
		}
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(sb.String())}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *MockEmbedder) vectorFor(text string) []float32 {
	e.mu.Lock()
	v, ok := e.vectors[text]
	e.mu.Unlock()
	if ok {
		return v
	}
	return deterministicVector(text, e.dim)
}

// deterministicVector derives a unit vector from text by chaining SHA-256
// blocks until enough bytes exist for every component.
func deterministicVector(text string, dim int) []float32 {
	block := sha256.Sum256([]byte(text))
	buf := block[:]
	for len(buf) < dim*4 {
		block = sha256.Sum256(block[:])
		buf = append(buf, block[:]...)
	}

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		// Map to [-1, 1].
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
		norm += float64(vec[i]) * float64(vec[i])
	}

	if n := float32(math.Sqrt(norm)); n > 0 {
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}
