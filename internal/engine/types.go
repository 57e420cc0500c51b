//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"errors"
)

// SourceStatus reports how a retrieval source fared during a search.
// An empty source found nothing; an unavailable source could not be
// consulted at all. The distinction matters downstream: empty results
// are an answer, unavailable sources are a degradation.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceEmpty       SourceStatus = "empty"
	SourceUnavailable SourceStatus = "unavailable"
)

// ErrUnavailable is returned when every retrieval source failed and no
// ranking, not even a degraded one, can be produced. A search that
// merely finds nothing returns an empty result set instead.
var ErrUnavailable = errors.New("all retrieval sources unavailable")

// Candidate is a single ranked search result. Per-source scores are
// kept alongside the fused score so callers can see how each source
// contributed. Threshold and IsFallback are only set by adaptive
// search.
type Candidate struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Reference string `json:"reference,omitempty"`

	LexicalScore float64 `json:"lexical_score,omitempty"`
	VectorScore  float64 `json:"vector_score,omitempty"`
	FusedScore   float64 `json:"fused_score,omitempty"`
	RerankScore  float64 `json:"rerank_score,omitempty"`

	Threshold  float64 `json:"threshold,omitempty"`
	IsFallback bool    `json:"is_fallback,omitempty"`
}

// SearchResponse is the outcome of a hybrid search, including the
// status of each source so degraded results are recognizable as such.
type SearchResponse struct {
	Candidates []Candidate  `json:"candidates"`
	Lexical    SourceStatus `json:"lexical_status"`
	Vector     SourceStatus `json:"vector_status"`
	Reranked   bool         `json:"reranked"`
}
