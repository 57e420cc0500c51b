//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package guideline matches free-form context text against a catalog of
// guideline rules in two stages: a coarse hybrid retrieval over the
// guideline conditions narrows the catalog to a handful of candidates,
// then an LLM picks the best fit among them. Every LLM failure mode has
// a deterministic fallback, so matching always produces an answer when
// any candidate exists.
package guideline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/bm25"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/config"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/database"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/fusion"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/vector"
)

// Selection methods recorded on a match result. "llm" means the
// selection model chose; the other two mean the fused ranking decided,
// either because the LLM was not needed ("fusion_only") or because it
// failed and the match degraded ("fusion_fallback").
const (
	SelectionLLM            = "llm"
	SelectionFusionOnly     = "fusion_only"
	SelectionFusionFallback = "fusion_fallback"
)

// Fallback confidences for the degraded selection paths.
const (
	confidenceSingle       = 1.0
	confidenceNoSelector   = 0.5
	confidenceParseFailure = 0.5
	confidenceCallFailure  = 0.3
	confidenceInvalidID    = 0.3
)

// MatchResult is the outcome of matching context text against the
// guideline catalog.
type MatchResult struct {
	GuidelineID    int64   `json:"guideline_id"`
	Title          string  `json:"title"`
	Condition      string  `json:"condition"`
	Action         string  `json:"action"`
	PromptTemplate string  `json:"prompt_template,omitempty"`
	Priority       int     `json:"priority"`

	MatchScore      float64 `json:"match_score"` // Fused retrieval score
	SelectionMethod string  `json:"selection_method"`
	Confidence      float64 `json:"confidence"`
}

// Matcher performs two-stage guideline matching over an in-memory
// catalog. The completion provider is optional; without it, selection
// falls back to the fused ranking.
type Matcher struct {
	cfg       config.EngineConfig
	embedder  llm.EmbeddingProvider
	completer llm.CompletionProvider
	logger    *slog.Logger

	mu         sync.RWMutex
	lexical    *bm25.Index
	vectors    *vector.Index
	guidelines map[int64]database.Guideline
}

// NewMatcher creates a Matcher. completer may be nil to disable LLM
// selection.
func NewMatcher(cfg config.EngineConfig, embedder llm.EmbeddingProvider, completer llm.CompletionProvider, logger *slog.Logger) (*Matcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if d := embedder.Dimensions(); d != cfg.EmbeddingDimensions {
		return nil, fmt.Errorf("embedding provider produces %d dimensions, matcher configured for %d",
			d, cfg.EmbeddingDimensions)
	}

	return &Matcher{
		cfg:        cfg,
		embedder:   embedder,
		completer:  completer,
		logger:     logger,
		lexical:    bm25.NewIndexWithParams(cfg.BM25K1, cfg.BM25B),
		vectors:    vector.NewIndex(cfg.EmbeddingDimensions),
		guidelines: make(map[int64]database.Guideline),
	}, nil
}

// Load replaces the catalog with the given guidelines. Guidelines
// without a condition embedding are skipped; they are not indexed yet.
func (m *Matcher) Load(guidelines []database.Guideline) error {
	lexical := bm25.NewIndexWithParams(m.cfg.BM25K1, m.cfg.BM25B)
	vectors := vector.NewIndex(m.cfg.EmbeddingDimensions)
	catalog := make(map[int64]database.Guideline, len(guidelines))

	for _, g := range guidelines {
		if len(g.ConditionEmbedding) == 0 {
			continue
		}
		if err := vectors.Add(g.ID, g.ConditionEmbedding); err != nil {
			return fmt.Errorf("guideline %d: %w", g.ID, err)
		}
		lexical.Add(g.ID, g.Title+" "+g.Condition)
		catalog[g.ID] = g
	}

	m.mu.Lock()
	m.lexical = lexical
	m.vectors = vectors
	m.guidelines = catalog
	m.mu.Unlock()

	m.logger.Info("guideline catalog loaded", "guidelines", len(catalog))
	return nil
}

// Index computes the condition embedding for a guideline and adds it to
// the in-memory catalog. The returned embedding is what the caller
// should persist.
func (m *Matcher) Index(ctx context.Context, g database.Guideline) ([]float32, error) {
	embedding, err := m.embedder.Embed(ctx, g.Condition)
	if err != nil {
		return nil, fmt.Errorf("failed to embed guideline %d: %w", g.ID, err)
	}
	if err := llm.ValidateDimensions(embedding, m.cfg.EmbeddingDimensions); err != nil {
		return nil, fmt.Errorf("guideline %d: %w", g.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.vectors.Add(g.ID, embedding); err != nil {
		return nil, fmt.Errorf("guideline %d: %w", g.ID, err)
	}
	m.lexical.Add(g.ID, g.Title+" "+g.Condition)
	g.ConditionEmbedding = embedding
	m.guidelines[g.ID] = g

	return embedding, nil
}

// Size returns the number of indexed guidelines.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.guidelines)
}

// Match finds the guideline whose condition best fits the given context
// text. It returns nil without error when no candidate is retrieved at
// all; an empty catalog is an answer, not a failure.
func (m *Matcher) Match(ctx context.Context, contextText string) (*MatchResult, error) {
	m.mu.RLock()
	lexical := m.lexical
	vectors := m.vectors
	catalog := m.guidelines
	m.mu.RUnlock()

	if len(catalog) == 0 {
		return nil, nil
	}

	timeout := time.Duration(m.cfg.SourceTimeout) * time.Second

	var (
		lexResults []bm25.Result
		vecResults []vector.Result
		vecErr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		lexResults = lexical.Search(contextText, m.cfg.SourceTopK)
		return nil
	})
	g.Go(func() error {
		embedCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		embedding, err := m.embedder.Embed(embedCtx, contextText)
		if err != nil {
			vecErr = err
			return nil
		}
		vecResults, vecErr = vectors.Search(embedding, m.cfg.FloorThreshold, m.cfg.SourceTopK)
		return nil
	})
	g.Wait()

	if vecErr != nil {
		m.logger.Warn("vector retrieval unavailable, matching lexically", "error", vecErr)
	}
	if len(lexResults) == 0 && len(vecResults) == 0 {
		return nil, nil
	}

	lexSource := fusion.Source{
		Weight: m.cfg.LexicalWeight,
		IDs:    make([]int64, 0, len(lexResults)),
		Scores: make(map[int64]float64, len(lexResults)),
	}
	for _, r := range lexResults {
		lexSource.IDs = append(lexSource.IDs, r.ID)
		lexSource.Scores[r.ID] = r.Score
	}
	vecSource := fusion.Source{
		Weight: m.cfg.VectorWeight,
		IDs:    make([]int64, 0, len(vecResults)),
		Scores: make(map[int64]float64, len(vecResults)),
	}
	for _, r := range vecResults {
		vecSource.IDs = append(vecSource.IDs, r.ID)
		vecSource.Scores[r.ID] = r.Similarity
	}

	// Equal fused scores resolve by guideline priority before anything
	// else.
	fused := fusion.Fuse([]fusion.Source{vecSource, lexSource}, m.cfg.RRFK, func(id int64) int {
		return catalog[id].Priority
	})
	if len(fused) > m.cfg.CandidateTopK {
		fused = fused[:m.cfg.CandidateTopK]
	}

	candidates := make([]database.Guideline, len(fused))
	for i, f := range fused {
		candidates[i] = catalog[f.ID]
	}

	// A lone candidate needs no selection.
	if len(candidates) == 1 {
		return m.buildResult(candidates[0], fused[0].Score, SelectionFusionOnly, confidenceSingle), nil
	}

	if m.completer == nil {
		return m.buildResult(candidates[0], fused[0].Score, SelectionFusionOnly, confidenceNoSelector), nil
	}

	return m.selectWithLLM(ctx, contextText, candidates, fused)
}

// selectWithLLM asks the selection model to pick among the shortlisted
// candidates. Each failure mode degrades to the top fused candidate
// with a confidence reflecting how much trust the degraded path
// deserves.
func (m *Matcher) selectWithLLM(ctx context.Context, contextText string, candidates []database.Guideline, fused []fusion.Result) (*MatchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.SourceTimeout)*time.Second)
	defer cancel()

	resp, err := m.completer.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: selectionSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildSelectionPrompt(contextText, candidates)},
		},
	})
	if err != nil {
		m.logger.Warn("selection call failed, using fused ranking", "error", err)
		return m.buildResult(candidates[0], fused[0].Score, SelectionFusionFallback, confidenceCallFailure), nil
	}

	chosenID, confidence, ok := parseSelection(resp.Content)
	if !ok {
		m.logger.Warn("selection response unparseable, using fused ranking",
			"response", resp.Content)
		return m.buildResult(candidates[0], fused[0].Score, SelectionFusionFallback, confidenceParseFailure), nil
	}

	for i, c := range candidates {
		if c.ID == chosenID {
			return m.buildResult(c, fused[i].Score, SelectionLLM, clamp(confidence)), nil
		}
	}

	m.logger.Warn("selection chose an id outside the shortlist, using fused ranking",
		"chosen", chosenID)
	return m.buildResult(candidates[0], fused[0].Score, SelectionFusionFallback, confidenceInvalidID), nil
}

func (m *Matcher) buildResult(g database.Guideline, score float64, method string, confidence float64) *MatchResult {
	return &MatchResult{
		GuidelineID:     g.ID,
		Title:           g.Title,
		Condition:       g.Condition,
		Action:          g.Action,
		PromptTemplate:  g.PromptTemplate,
		Priority:        g.Priority,
		MatchScore:      score,
		SelectionMethod: method,
		Confidence:      confidence,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
