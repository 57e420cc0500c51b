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
	"log/slog"
)

// Default cascade parameters. The ladder starts at near-exact matches
// and relaxes step by step; the floor is the last-resort threshold for
// the fallback query.
var DefaultLadder = []float64{0.95, 0.90, 0.80, 0.65}

const (
	DefaultFloor      = 0.5
	DefaultMinResults = 3
)

// CascadeResult is a cascade hit annotated with the threshold at which
// it was found and whether it came from the floor fallback query.
type CascadeResult struct {
	ID         int64
	Similarity float64
	Threshold  float64
	IsFallback bool
}

// Cascade runs vector search through a sequence of decreasing
// similarity thresholds. Results collected at stricter thresholds are
// excluded from later steps, so each record is reported once, at the
// highest threshold that accepted it. If the ladder is exhausted with
// fewer than MinResults hits, one final query at Floor fills the
// remainder and tags those hits as fallback.
//
// Both terminal states are valid: either enough results were found, or
// the floor query ran out of candidates. Neither is an error.
type Cascade struct {
	Ladder     []float64 // Strictest first, strictly decreasing
	Floor      float64
	MinResults int
	Logger     *slog.Logger
}

// NewCascade returns a cascade with default ladder, floor and minimum.
func NewCascade() Cascade {
	return Cascade{
		Ladder:     DefaultLadder,
		Floor:      DefaultFloor,
		MinResults: DefaultMinResults,
	}
}

// Run executes the cascade against ix and returns up to topN results.
// topN values below MinResults still allow the floor query to fire, so
// the guarantee of MinResults candidates-if-they-exist holds.
func (c Cascade) Run(ix *Index, query []float32, topN int) ([]CascadeResult, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if topN <= 0 {
		topN = c.MinResults
	}

	collected := make(map[int64]bool)
	var final []CascadeResult

	for _, threshold := range c.Ladder {
		if len(final) >= topN {
			break
		}

		remaining := topN - len(final)
		hits, err := ix.search(query, threshold, remaining, collected)
		if err != nil {
			return nil, err
		}

		for _, h := range hits {
			collected[h.ID] = true
			final = append(final, CascadeResult{
				ID:         h.ID,
				Similarity: h.Similarity,
				Threshold:  threshold,
			})
		}

		if len(hits) > 0 {
			logger.Debug("cascade step complete",
				"threshold", threshold,
				"found", len(hits),
				"collected", len(final),
			)
		}
	}

	// Floor query: best-effort fill when the ladder came up short.
	if len(final) < c.MinResults {
		logger.Debug("cascade below minimum, running floor query",
			"collected", len(final),
			"floor", c.Floor,
		)

		hits, err := ix.search(query, c.Floor, c.MinResults-len(final), collected)
		if err != nil {
			return nil, err
		}

		for _, h := range hits {
			collected[h.ID] = true
			final = append(final, CascadeResult{
				ID:         h.ID,
				Similarity: h.Similarity,
				Threshold:  c.Floor,
				IsFallback: true,
			})
		}
	}

	if len(final) > topN {
		final = final[:topN]
	}

	return final, nil
}
