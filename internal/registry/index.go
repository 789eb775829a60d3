package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/coder/hnsw"
)

// HNSW parameters for small face galleries.
const (
	// indexMaxNeighbors (M) is the maximum number of neighbors per node.
	indexMaxNeighbors = 16

	// indexEfSearch is the search candidate pool size.
	indexEfSearch = 64
)

// ErrDimension is returned when a query does not match the index width.
var ErrDimension = errors.New("embedding dimension mismatch")

// Neighbor is one search hit.
type Neighbor struct {
	Label    string
	Distance float32
}

// index wraps the HNSW graph keyed by label. Every embedding is kept in
// vectors, but only those of the most common width are searchable. It is not
// safe for concurrent use; the Store serialises access.
type index struct {
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
	dim     int
}

func newIndex() *index {
	return &index{
		graph:   newGraph(),
		vectors: make(map[string][]float32),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors) // Standard HNSW formula
	g.EfSearch = indexEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// put inserts or replaces the embedding stored under label and reports
// whether it is searchable. An empty embedding removes the label.
func (x *index) put(label string, embedding []float32) bool {
	if len(embedding) == 0 {
		x.remove(label)
		return false
	}

	_, exists := x.vectors[label]
	x.vectors[label] = embedding
	if !exists && x.dim == len(embedding) {
		x.graph.Add(hnsw.MakeNode(label, embedding))
		return true
	}
	x.rebuild()
	return x.dim == len(embedding)
}

func (x *index) remove(label string) {
	if _, ok := x.vectors[label]; !ok {
		return
	}
	delete(x.vectors, label)
	x.rebuild()
}

// excluded returns the labels whose width differs from the index width.
func (x *index) excluded() []string {
	var out []string
	for label, vec := range x.vectors {
		if len(vec) != x.dim {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}

// rebuild picks the most common embedding width, ties going to the wider
// one, and recreates the graph from the vectors of that width.
func (x *index) rebuild() {
	counts := make(map[int]int)
	for _, vec := range x.vectors {
		counts[len(vec)]++
	}
	x.dim = 0
	for dim, n := range counts {
		if n > counts[x.dim] || (n == counts[x.dim] && dim > x.dim) {
			x.dim = dim
		}
	}

	g := newGraph()
	for label, vec := range x.vectors {
		if len(vec) == x.dim {
			g.Add(hnsw.MakeNode(label, vec))
		}
	}
	x.graph = g
}

// search finds the k nearest labels. Distances are recomputed exactly from the
// stored vectors since the graph only approximates the ordering.
func (x *index) search(query []float32, k int) ([]Neighbor, error) {
	if k <= 0 || x.dim == 0 {
		return nil, nil
	}
	if x.dim != len(query) {
		return nil, fmt.Errorf("%w: query has %d, index holds %d", ErrDimension, len(query), x.dim)
	}

	nodes := x.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{Label: n.Key, Distance: EuclideanDistance(query, n.Value)})
	}
	sortNeighbors(out)
	return out, nil
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Label < ns[j].Label
	})
}
