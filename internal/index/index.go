// Package index builds, persists and searches the vector indexes the
// retrieval pipeline runs on. An index is an ordered passage list plus a
// flat row-major vector block; on disk it is a meta.json sidecar and a
// vectors.f32 file that are only ever written and read as a pair.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"

	"docport/internal/domain"
)

// CurrentFormatVersion is bumped on breaking changes to the artifact layout.
const CurrentFormatVersion = 1

// Meta is the header of the metadata sidecar.
type Meta struct {
	FormatVersion   int           `json:"format_version"`
	CreatedAt       string        `json:"created_at"`
	EmbedderVersion string        `json:"embedder_version"`
	Dim             int           `json:"dim"`
	Count           int           `json:"count"`
	Fingerprint     string        `json:"fingerprint,omitempty"`
	Documents       []DocumentRef `json:"documents,omitempty"`
}

// DocumentRef identifies a source document inside an index.
type DocumentRef struct {
	Checksum string `json:"checksum"`
	Name     string `json:"name,omitempty"`
	Pages    int    `json:"pages,omitempty"`
}

// Index is a loaded or freshly built vector index.
type Index struct {
	Meta     Meta
	Passages []domain.Passage
	Vectors  []float32
}

// Build assembles an index from parallel passage and vector slices.
// Vectors of inconsistent width are rejected.
func Build(passages []domain.Passage, vectors [][]float32, embedderVersion string) (*Index, error) {
	if len(passages) != len(vectors) {
		return nil, fmt.Errorf("build index: %d passages but %d vectors", len(passages), len(vectors))
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	flat := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dim)
		}
		flat = append(flat, v...)
	}

	seen := make(map[string]bool)
	var docs []DocumentRef
	for _, p := range passages {
		if p.DocChecksum == "" || seen[p.DocChecksum] {
			continue
		}
		seen[p.DocChecksum] = true
		docs = append(docs, DocumentRef{Checksum: p.DocChecksum})
	}

	kept := make([]domain.Passage, len(passages))
	copy(kept, passages)

	return &Index{
		Meta: Meta{
			FormatVersion:   CurrentFormatVersion,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			EmbedderVersion: embedderVersion,
			Dim:             dim,
			Count:           len(kept),
			Documents:       docs,
		},
		Passages: kept,
		Vectors:  flat,
	}, nil
}

// Merge concatenates indexes in argument order. Inputs built under different
// embedding capabilities or dimensions never merge.
func Merge(indexes ...*Index) (*Index, error) {
	if len(indexes) == 0 {
		return nil, fmt.Errorf("merge: no indexes given")
	}

	// Version must agree across every input, empty ones included; the
	// dimension is only meaningful on inputs that hold vectors.
	version := indexes[0].Meta.EmbedderVersion
	dim := 0
	total := 0
	for _, ix := range indexes {
		if ix.Meta.EmbedderVersion != version {
			return nil, fmt.Errorf("%w: cannot merge embedder %q with %q",
				domain.ErrDimensionMismatch, ix.Meta.EmbedderVersion, version)
		}
		if ix.Meta.Count == 0 {
			continue
		}
		if dim == 0 {
			dim = ix.Meta.Dim
		}
		if ix.Meta.Dim != dim {
			return nil, fmt.Errorf("%w: cannot merge dimension %d with %d",
				domain.ErrDimensionMismatch, ix.Meta.Dim, dim)
		}
		total += ix.Meta.Count
	}

	merged := &Index{
		Meta: Meta{
			FormatVersion:   CurrentFormatVersion,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			EmbedderVersion: version,
			Dim:             dim,
			Count:           total,
		},
		Passages: make([]domain.Passage, 0, total),
		Vectors:  make([]float32, 0, total*dim),
	}

	seen := make(map[string]bool)
	for _, ix := range indexes {
		merged.Passages = append(merged.Passages, ix.Passages...)
		merged.Vectors = append(merged.Vectors, ix.Vectors...)
		for _, d := range ix.Meta.Documents {
			if seen[d.Checksum] {
				continue
			}
			seen[d.Checksum] = true
			merged.Meta.Documents = append(merged.Meta.Documents, d)
		}
	}

	return merged, nil
}

// Search runs exact cosine top-k over the index. Results come back in
// non-increasing score order; equal scores keep passage insertion order.
// k larger than the index is clamped.
func (ix *Index) Search(query []float32, k int) ([]domain.ScoredPassage, error) {
	if k <= 0 || ix.Meta.Count == 0 {
		return nil, nil
	}
	if len(query) != ix.Meta.Dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), ix.Meta.Dim)
	}

	scored := make([]domain.ScoredPassage, ix.Meta.Count)
	for i := 0; i < ix.Meta.Count; i++ {
		scored[i] = domain.ScoredPassage{
			Passage: ix.Passages[i],
			Score:   cosineSimilarity(query, ix.Row(i)),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Row returns the vector of passage i as a subslice of the vector block.
func (ix *Index) Row(i int) []float32 {
	return ix.Vectors[i*ix.Meta.Dim : (i+1)*ix.Meta.Dim]
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
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
