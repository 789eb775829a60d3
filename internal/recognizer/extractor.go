// Package recognizer turns a face crop into ranked identity candidates by
// embedding it and searching the registered faces.
package recognizer

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/mask-sentry/internal/facematch"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

// PlaceholderLabel is returned as the nearest label when nothing is registered.
const PlaceholderLabel = "?"

// Embedder computes a face embedding from a model-sized crop.
type Embedder interface {
	Embed(ctx context.Context, img image.Image) ([]float32, error)
}

// Index finds the registered faces nearest to an embedding.
type Index interface {
	Nearest(query []float32, k int) ([]registry.Neighbor, error)
}

// Extractor implements the embedding extractor on top of an Embedder and
// the registration store.
type Extractor struct {
	Embedder Embedder
	Index    Index
}

// Extract returns exactly one candidate: the nearest registered neighbour,
// tagged with facematch.NearestNeighborID. With no registered faces the
// candidate carries PlaceholderLabel and the largest float32 distance so the
// face can still be offered for registration.
func (e *Extractor) Extract(ctx context.Context, img image.Image, wantEmbedding bool) ([]facematch.Candidate, error) {
	embedding, err := e.Embedder.Embed(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embedding face: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding face: empty output")
	}

	candidate := facematch.Candidate{
		ID:       facematch.NearestNeighborID,
		Label:    PlaceholderLabel,
		Distance: math.MaxFloat32,
	}

	hits, err := e.Index.Nearest(embedding, 1)
	if err != nil {
		return nil, fmt.Errorf("searching registered faces: %w", err)
	}
	if len(hits) > 0 {
		candidate.Label = hits[0].Label
		candidate.Distance = hits[0].Distance
	}

	if wantEmbedding {
		candidate.Embedding = embedding
	}
	return []facematch.Candidate{candidate}, nil
}
