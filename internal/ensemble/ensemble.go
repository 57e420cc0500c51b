//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ensemble estimates how trustworthy a retrieval outcome is by
// running the same query under several perturbed strategies and
// checking whether they agree. High agreement across differently tuned
// runs means the top result is robust to parameter choice; a result
// that only wins under one tuning is fragile.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// MinStrategies and MaxStrategies bound the ensemble size. Below
	// two there is nothing to agree on; above six the extra runs stop
	// changing the vote.
	MinStrategies = 2
	MaxStrategies = 6

	// reliabilityBar is the cutoff both consistency and confidence must
	// clear for an estimate to be considered reliable.
	reliabilityBar = 0.7
)

// Strategy is one perturbed retrieval configuration. Zero-valued
// overrides leave the engine's configured value in place.
type Strategy struct {
	Name          string
	LexicalWeight float64
	VectorWeight  float64
	Threshold     float64
}

// Outcome is the top result of one strategy run.
type Outcome struct {
	ID         int64
	Confidence float64
}

// Runner executes a single strategy and reports its top result.
type Runner func(ctx context.Context, s Strategy) (Outcome, error)

// Estimate is the aggregated verdict of an ensemble run.
type Estimate struct {
	ID          int64   `json:"id"`          // Majority winner
	Consistency float64 `json:"consistency"` // Agreeing runs / completed runs
	Confidence  float64 `json:"confidence"`  // Mean confidence of agreeing runs
	Completed   int     `json:"completed"`   // Strategies that produced an outcome
	Reliable    bool    `json:"reliable"`
}

// Estimator runs a set of strategies through a Runner and aggregates
// their votes.
type Estimator struct {
	Strategies []Strategy
	Logger     *slog.Logger
}

// DefaultStrategies returns a spread of retrieval tunings around the
// production defaults: the defaults themselves, a lexical-leaning and a
// vector-leaning variant, and a stricter threshold.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "default"},
		{Name: "lexical-leaning", LexicalWeight: 0.6, VectorWeight: 0.4},
		{Name: "vector-leaning", LexicalWeight: 0.2, VectorWeight: 0.8},
		{Name: "strict-threshold", Threshold: 0.9},
	}
}

// Run executes every strategy and returns the aggregated estimate.
// Failed runs are logged and excluded from the vote; the estimate
// errors only if fewer than MinStrategies runs complete.
func (e *Estimator) Run(ctx context.Context, run Runner) (*Estimate, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(e.Strategies) < MinStrategies || len(e.Strategies) > MaxStrategies {
		return nil, fmt.Errorf("ensemble needs between %d and %d strategies, got %d",
			MinStrategies, MaxStrategies, len(e.Strategies))
	}

	var outcomes []Outcome
	for _, s := range e.Strategies {
		outcome, err := run(ctx, s)
		if err != nil {
			logger.Warn("ensemble strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	if len(outcomes) < MinStrategies {
		return nil, fmt.Errorf("only %d of %d strategies completed, no quorum",
			len(outcomes), len(e.Strategies))
	}

	// Majority vote on the top result id.
	votes := make(map[int64]int)
	for _, o := range outcomes {
		votes[o.ID]++
	}
	var winner int64
	best := -1
	for id, n := range votes {
		if n > best || (n == best && id < winner) {
			winner = id
			best = n
		}
	}

	var confSum float64
	for _, o := range outcomes {
		if o.ID == winner {
			confSum += o.Confidence
		}
	}

	est := &Estimate{
		ID:          winner,
		Consistency: float64(best) / float64(len(outcomes)),
		Confidence:  confSum / float64(best),
		Completed:   len(outcomes),
	}
	est.Reliable = est.Consistency >= reliabilityBar && est.Confidence >= reliabilityBar

	return est, nil
}
