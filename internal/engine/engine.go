//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package engine orchestrates hybrid retrieval: BM25 lexical search and
// cosine vector search run in parallel over an in-memory snapshot,
// their rankings are fused with weighted RRF, and an optional
// cross-encoder rerank refines the head of the list. Every external
// dependency degrades rather than fails: a dead rerank service or a
// failed embedding call narrows the result, it never turns a working
// search into an error.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/bm25"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/config"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/database"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/rerank"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/vector"
)

// Reranker reorders texts by relevance to a query. Satisfied by
// rerank.Client; a nil Reranker disables the stage entirely.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]rerank.Result, error)
}

// snapshot is an immutable view of the searchable corpus. Load builds a
// fresh one and swaps it in atomically, so in-flight searches always
// see a consistent pairing of indexes and records.
type snapshot struct {
	lexical *bm25.Index
	vectors *vector.Index
	records map[int64]database.Record
}

// Engine performs hybrid search over an in-memory corpus snapshot.
type Engine struct {
	cfg      config.EngineConfig
	embedder llm.EmbeddingProvider
	reranker Reranker
	logger   *slog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// New creates an Engine. The embedder is required; reranker may be nil
// to disable cross-encoder reranking. The embedder's dimensionality
// must match the configured one, mixing models of different widths
// corrupts every similarity it touches.
func New(cfg config.EngineConfig, embedder llm.EmbeddingProvider, reranker Reranker, logger *slog.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if d := embedder.Dimensions(); d != cfg.EmbeddingDimensions {
		return nil, fmt.Errorf("embedding provider produces %d dimensions, engine configured for %d",
			d, cfg.EmbeddingDimensions)
	}

	return &Engine{
		cfg:      cfg,
		embedder: embedder,
		reranker: reranker,
		logger:   logger,
		snap: &snapshot{
			lexical: bm25.NewIndexWithParams(cfg.BM25K1, cfg.BM25B),
			vectors: vector.NewIndex(cfg.EmbeddingDimensions),
			records: make(map[int64]database.Record),
		},
	}, nil
}

// Load replaces the searchable corpus. Records without an embedding are
// indexed lexically only. The swap is atomic; searches running against
// the previous snapshot complete undisturbed.
func (e *Engine) Load(records []database.Record, embeddings map[int64][]float32) error {
	snap := &snapshot{
		lexical: bm25.NewIndexWithParams(e.cfg.BM25K1, e.cfg.BM25B),
		vectors: vector.NewIndex(e.cfg.EmbeddingDimensions),
		records: make(map[int64]database.Record, len(records)),
	}

	for _, r := range records {
		snap.records[r.ID] = r
		snap.lexical.Add(r.ID, r.Title+" "+r.Body)
		if vec, ok := embeddings[r.ID]; ok {
			if err := snap.vectors.Add(r.ID, vec); err != nil {
				return fmt.Errorf("record %d: %w", r.ID, err)
			}
		}
	}

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()

	e.logger.Info("corpus loaded",
		"records", len(records),
		"embedded", snap.vectors.Size())
	return nil
}

// Size returns the number of records in the current snapshot.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.snap.records)
}

func (e *Engine) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}
