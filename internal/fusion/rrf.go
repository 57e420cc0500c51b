//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fusion merges independently ranked result lists with weighted
// Reciprocal Rank Fusion. The same function serves both document
// retrieval and guideline retrieval; only the weights differ.
package fusion

import (
	"sort"
)

// DefaultK is the default smoothing constant for RRF ranking.
// A value of 60 is commonly used in practice.
const DefaultK = 60

// Source is one ranked list entering fusion. IDs are ordered by
// descending relevance, so position 0 holds rank 1. Scores carries the
// source's original per-id scores and is optional; it is only consulted
// for tie-breaking.
type Source struct {
	Weight float64
	IDs    []int64
	Scores map[int64]float64
}

// Result is a fused candidate.
type Result struct {
	ID        int64
	Score     float64 // Weighted RRF sum across sources
	BestScore float64 // Largest original single-source score, for ties
}

// Fuse combines any number of ranked sources into one fused ranking.
//
// Each id at 1-based rank r in a source contributes weight * 1/(k + r);
// contributions are summed per id. An id absent from a source simply
// contributes nothing from it, so the fused output is the union of all
// input ids. Ties are broken by the caller-supplied priority key (higher
// wins), then by the largest original single-source score, then by the
// higher id for determinism. priority may be nil.
//
// Fuse is a pure function: fixed inputs always yield the same order.
func Fuse(sources []Source, k float64, priority func(id int64) int) []Result {
	if k <= 0 {
		k = DefaultK
	}

	fused := make(map[int64]*Result)

	for _, src := range sources {
		for i, id := range src.IDs {
			rank := i + 1 // 1-indexed
			contribution := src.Weight * (1.0 / (k + float64(rank)))

			r, ok := fused[id]
			if !ok {
				r = &Result{ID: id}
				fused[id] = r
			}
			r.Score += contribution

			if orig, ok := src.Scores[id]; ok && orig > r.BestScore {
				r.BestScore = orig
			}
		}
	}

	results := make([]Result, 0, len(fused))
	for _, r := range fused {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if priority != nil {
			if pa, pb := priority(a.ID), priority(b.ID); pa != pb {
				return pa > pb
			}
		}
		if a.BestScore != b.BestScore {
			return a.BestScore > b.BestScore
		}
		return a.ID > b.ID
	})

	return results
}
