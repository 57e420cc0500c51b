//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIndex_AddDimensionMismatch(t *testing.T) {
	ix := NewIndex(3)

	if err := ix.Add(1, []float32{1, 2}); err == nil {
		t.Error("expected error for short vector")
	}
	if err := ix.Add(1, []float32{1, 2, 3, 4}); err == nil {
		t.Error("expected error for long vector")
	}
	if ix.Size() != 0 {
		t.Errorf("rejected vectors must not be stored, size = %d", ix.Size())
	}

	if err := ix.Add(1, []float32{1, 2, 3}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIndex_SearchDimensionMismatch(t *testing.T) {
	ix := NewIndex(3)
	if _, err := ix.Search([]float32{1, 2}, 0, 10); err == nil {
		t.Error("expected error for mismatched query dimensions")
	}
}

func TestIndex_Search(t *testing.T) {
	ix := NewIndex(2)
	// Angles from the x axis: 0, 30ish, 90 degrees
	mustAdd(t, ix, 1, []float32{1, 0})
	mustAdd(t, ix, 2, []float32{0.87, 0.5})
	mustAdd(t, ix, 3, []float32{0, 1})

	results, err := ix.Search([]float32{1, 0}, 0.8, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].ID != 1 || results[1].ID != 2 {
		t.Errorf("unexpected order: %v", results)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not in descending similarity order")
	}
}

func TestIndex_Search_TopN(t *testing.T) {
	ix := NewIndex(2)
	mustAdd(t, ix, 1, []float32{1, 0})
	mustAdd(t, ix, 2, []float32{1, 0.1})
	mustAdd(t, ix, 3, []float32{1, 0.2})

	results, err := ix.Search([]float32{1, 0}, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestIndex_Search_Empty(t *testing.T) {
	ix := NewIndex(2)
	results, err := ix.Search([]float32{1, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestIndex_Remove(t *testing.T) {
	ix := NewIndex(2)
	mustAdd(t, ix, 1, []float32{1, 0})
	ix.Remove(1)
	ix.Remove(99) // unknown id is a no-op

	if ix.Size() != 0 {
		t.Errorf("expected empty index, size = %d", ix.Size())
	}
}

func mustAdd(t *testing.T, ix *Index, id int64, vec []float32) {
	t.Helper()
	if err := ix.Add(id, vec); err != nil {
		t.Fatalf("Add(%d): %v", id, err)
	}
}
