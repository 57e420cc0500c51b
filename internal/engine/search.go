//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/bm25"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/fusion"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/vector"
)

// maxRerankBodyRunes caps the body text sent to the rerank service.
const maxRerankBodyRunes = 2000

// SearchOptions overrides individual retrieval tunables for one call.
// Zero values keep the configured default. Used by ensemble estimation
// to perturb a query without rebuilding the engine.
type SearchOptions struct {
	TopN                int
	LexicalWeight       float64
	VectorWeight        float64
	SimilarityThreshold float64
}

// Search runs the hybrid pipeline: both sources in parallel, weighted
// RRF fusion, then an optional cross-encoder rerank of the head.
//
// A source that finds nothing contributes nothing; a source that fails
// is marked unavailable and the other carries the ranking alone. Only
// when every source fails does Search return ErrUnavailable.
func (e *Engine) Search(ctx context.Context, query string, topN int) (*SearchResponse, error) {
	return e.SearchWith(ctx, query, SearchOptions{TopN: topN})
}

// SearchWith is Search with per-call tunable overrides.
func (e *Engine) SearchWith(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	topN := opts.TopN
	if topN <= 0 {
		topN = e.cfg.SourceTopK
	}
	lexWeight := opts.LexicalWeight
	if lexWeight == 0 {
		lexWeight = e.cfg.LexicalWeight
	}
	vecWeight := opts.VectorWeight
	if vecWeight == 0 {
		vecWeight = e.cfg.VectorWeight
	}
	simThreshold := opts.SimilarityThreshold
	if simThreshold == 0 {
		simThreshold = e.cfg.SimilarityThreshold
	}
	snap := e.snapshot()

	var (
		lexResults []bm25.Result
		vecResults []vector.Result
		vecErr     error
	)

	timeout := time.Duration(e.cfg.SourceTimeout) * time.Second

	var g errgroup.Group
	g.Go(func() error {
		lexResults = snap.lexical.Search(query, e.cfg.SourceTopK)
		return nil
	})
	g.Go(func() error {
		embedCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		embedding, err := e.embedder.Embed(embedCtx, query)
		if err != nil {
			vecErr = err
			return nil
		}
		vecResults, vecErr = snap.vectors.Search(embedding, simThreshold, e.cfg.SourceTopK)
		return nil
	})
	g.Wait()

	resp := &SearchResponse{
		Lexical: SourceOK,
		Vector:  SourceOK,
	}
	if len(lexResults) == 0 {
		resp.Lexical = SourceEmpty
	}
	if vecErr != nil {
		resp.Vector = SourceUnavailable
		e.logger.Warn("vector source unavailable, continuing lexical-only", "error", vecErr)
	} else if len(vecResults) == 0 {
		resp.Vector = SourceEmpty
	}

	if resp.Vector == SourceUnavailable && resp.Lexical == SourceUnavailable {
		return nil, ErrUnavailable
	}

	lexSource := fusion.Source{
		Weight: lexWeight,
		IDs:    make([]int64, 0, len(lexResults)),
		Scores: make(map[int64]float64, len(lexResults)),
	}
	for _, r := range lexResults {
		lexSource.IDs = append(lexSource.IDs, r.ID)
		lexSource.Scores[r.ID] = r.Score
	}

	vecSource := fusion.Source{
		Weight: vecWeight,
		IDs:    make([]int64, 0, len(vecResults)),
		Scores: make(map[int64]float64, len(vecResults)),
	}
	for _, r := range vecResults {
		vecSource.IDs = append(vecSource.IDs, r.ID)
		vecSource.Scores[r.ID] = r.Similarity
	}

	fused := fusion.Fuse([]fusion.Source{vecSource, lexSource}, e.cfg.RRFK, nil)
	if len(fused) > topN {
		fused = fused[:topN]
	}

	for _, f := range fused {
		rec := snap.records[f.ID]
		c := Candidate{
			ID:           f.ID,
			Title:        rec.Title,
			Body:         rec.Body,
			Reference:    rec.Reference,
			LexicalScore: lexSource.Scores[f.ID],
			VectorScore:  vecSource.Scores[f.ID],
			FusedScore:   f.Score,
		}
		resp.Candidates = append(resp.Candidates, c)
	}

	resp.Reranked = e.rerankCandidates(ctx, query, resp.Candidates)
	return resp, nil
}

// AdaptiveSearch runs the vector threshold cascade instead of a fixed
// cutoff: strict thresholds first, relaxing only as needed, with a
// floor probe tagging below-standard fallback results. The optional
// rerank stage applies on top; if it fails, cascade order stands.
func (e *Engine) AdaptiveSearch(ctx context.Context, query string, topN int) (*SearchResponse, error) {
	if topN <= 0 {
		topN = e.cfg.SourceTopK
	}
	snap := e.snapshot()

	embedCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.SourceTimeout)*time.Second)
	defer cancel()

	embedding, err := e.embedder.Embed(embedCtx, query)
	if err != nil {
		e.logger.Warn("embedding failed, adaptive search unavailable", "error", err)
		return nil, ErrUnavailable
	}

	cascade := vector.Cascade{
		Ladder:     e.cfg.ThresholdLadder,
		Floor:      e.cfg.FloorThreshold,
		MinResults: e.cfg.MinResults,
		Logger:     e.logger,
	}
	results, err := cascade.Run(snap.vectors, embedding, topN)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Lexical: SourceEmpty,
		Vector:  SourceOK,
	}
	if len(results) == 0 {
		resp.Vector = SourceEmpty
		return resp, nil
	}

	for _, r := range results {
		rec := snap.records[r.ID]
		resp.Candidates = append(resp.Candidates, Candidate{
			ID:          r.ID,
			Title:       rec.Title,
			Body:        rec.Body,
			Reference:   rec.Reference,
			VectorScore: r.Similarity,
			Threshold:   r.Threshold,
			IsFallback:  r.IsFallback,
		})
	}

	resp.Reranked = e.rerankCandidates(ctx, query, resp.Candidates)
	return resp, nil
}

// QAResponse probes for a single near-exact match at a very high
// similarity threshold. It returns nil when nothing clears the bar;
// callers use it as a shortcut before running the full pipeline.
func (e *Engine) QAResponse(ctx context.Context, query string) (*Candidate, error) {
	const qaThreshold = 0.95

	snap := e.snapshot()

	embedCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.SourceTimeout)*time.Second)
	defer cancel()

	embedding, err := e.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, ErrUnavailable
	}

	results, err := snap.vectors.Search(embedding, qaThreshold, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	rec := snap.records[results[0].ID]
	return &Candidate{
		ID:          results[0].ID,
		Title:       rec.Title,
		Body:        rec.Body,
		Reference:   rec.Reference,
		VectorScore: results[0].Similarity,
		Threshold:   qaThreshold,
	}, nil
}

// rerankCandidates reorders the head of candidates in place using the
// cross-encoder, reporting whether reranking was applied. Any failure
// leaves the fused order untouched.
func (e *Engine) rerankCandidates(ctx context.Context, query string, candidates []Candidate) bool {
	if e.reranker == nil || len(candidates) == 0 {
		return false
	}

	n := len(candidates)
	if e.cfg.RerankTopN > 0 && n > e.cfg.RerankTopN {
		n = e.cfg.RerankTopN
	}
	head := candidates[:n]

	texts := make([]string, n)
	for i, c := range head {
		texts[i] = rerankText(c)
	}

	rerankCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.SourceTimeout)*time.Second)
	defer cancel()

	scores, err := e.reranker.Rerank(rerankCtx, query, texts)
	if err != nil {
		e.logger.Warn("rerank failed, keeping fused order", "error", err)
		return false
	}

	// A payload indexing the same candidate twice, or outside the sent
	// range, would duplicate one candidate and drop another when the
	// head is rebuilt. Treat it like any other service failure.
	used := make(map[int]bool, len(scores))
	for _, s := range scores {
		if s.Index < 0 || s.Index >= n || used[s.Index] {
			e.logger.Warn("rerank returned an invalid index, keeping fused order",
				"index", s.Index)
			return false
		}
		used[s.Index] = true
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	reordered := make([]Candidate, 0, n)
	for _, s := range scores {
		c := head[s.Index]
		c.RerankScore = s.Score
		reordered = append(reordered, c)
	}
	// The service may return fewer entries than sent; keep the rest in
	// fused order behind the reranked head.
	if len(reordered) < n {
		seen := make(map[int64]bool, len(reordered))
		for _, c := range reordered {
			seen[c.ID] = true
		}
		for _, c := range head {
			if !seen[c.ID] {
				reordered = append(reordered, c)
			}
		}
	}
	copy(head, reordered)
	return true
}

func rerankText(c Candidate) string {
	body := c.Body
	if runes := []rune(body); len(runes) > maxRerankBodyRunes {
		body = string(runes[:maxRerankBodyRunes])
	}
	if c.Title == "" {
		return body
	}
	return c.Title + "\n" + body
}
