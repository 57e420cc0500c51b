//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package vector provides cosine similarity search over in-memory
// record embeddings, including the adaptive threshold cascade.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Result is a single similarity search hit.
type Result struct {
	ID         int64
	Similarity float64
}

// Index is an in-memory similarity index. All vectors must share the
// dimensionality fixed at construction time; a mismatch is a hard
// validation failure, never a silent truncation.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries map[int64][]float32
}

// NewIndex creates an index for vectors of the given dimensionality.
func NewIndex(dims int) *Index {
	return &Index{
		dims:    dims,
		entries: make(map[int64][]float32),
	}
}

// Dimensions returns the configured vector dimensionality.
func (ix *Index) Dimensions() int {
	return ix.dims
}

// Add stores a vector under id, replacing any previous entry.
func (ix *Index) Add(id int64, vec []float32) error {
	if len(vec) != ix.dims {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vec), ix.dims)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[id] = vec
	return nil
}

// Remove deletes the vector stored under id, if any.
func (ix *Index) Remove(id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns up to topN entries whose cosine similarity to query is
// at least threshold, in descending similarity order.
func (ix *Index) Search(query []float32, threshold float64, topN int) ([]Result, error) {
	return ix.search(query, threshold, topN, nil)
}

func (ix *Index) search(
	query []float32,
	threshold float64,
	topN int,
	exclude map[int64]bool,
) ([]Result, error) {
	if len(query) != ix.dims {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(query), ix.dims)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []Result
	for id, vec := range ix.entries {
		if exclude[id] {
			continue
		}
		sim := Cosine(query, vec)
		if sim >= threshold {
			results = append(results, Result{ID: id, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	return results, nil
}

// Cosine returns the cosine similarity of two equal-length vectors.
// Returns 0 when either vector has zero magnitude.
func Cosine(a, b []float32) float64 {
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
