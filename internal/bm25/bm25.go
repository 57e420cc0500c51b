//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package bm25 provides BM25-style lexical scoring with corpus-level
// length normalization.
package bm25

import (
	"math"
)

// DefaultK1 is the default term frequency saturation parameter.
// Higher values mean term frequency has more impact.
const DefaultK1 = 1.2

// DefaultB is the default document length normalization parameter.
// B=0 means no normalization, B=1 means full normalization.
const DefaultB = 0.75

// CorpusStats holds the statistics a scorer needs about the searchable
// corpus. Both values must be computed over committed documents only.
type CorpusStats struct {
	AvgDocLength float64 // Average document length in tokens
	TotalDocs    int     // Total number of documents
}

// Scorer implements BM25-style relevance scoring. A document's score is
// its term-match rank multiplied by a corpus-relative length
// normalization factor:
//
//	log(totalDocs + 1) / (1 + log(1 + b * (docLen / avgDocLen)))
//
// The factor boosts documents shorter than the corpus average and
// dampens longer ones. Document length is measured in tokens rather
// than characters, which keeps the factor stable across scripts with
// multi-byte characters.
type Scorer struct {
	K1    float64 // Term frequency saturation (default 1.2)
	B     float64 // Document length normalization (default 0.75)
	Stats CorpusStats
}

// NewScorer creates a scorer with default parameters.
func NewScorer() *Scorer {
	return &Scorer{
		K1: DefaultK1,
		B:  DefaultB,
	}
}

// NewScorerWithParams creates a scorer with custom parameters.
func NewScorerWithParams(k1, b float64) *Scorer {
	return &Scorer{
		K1: k1,
		B:  b,
	}
}

// SetCorpusStats sets the corpus statistics needed for scoring.
func (s *Scorer) SetCorpusStats(totalDocs int, avgDocLength float64) {
	s.Stats = CorpusStats{
		AvgDocLength: avgDocLength,
		TotalDocs:    totalDocs,
	}
}

// IDF calculates the Inverse Document Frequency for a term using the
// Lucene variant of the BM25 IDF formula:
//
//	IDF(t) = log(1 + (N - df(t) + 0.5) / (df(t) + 0.5))
//
// where N is the total number of documents and df(t) is the document
// frequency of term t. The variant is always non-negative, unlike the
// classic formula which goes negative for very common terms.
func (s *Scorer) IDF(docFreq int) float64 {
	if s.Stats.TotalDocs == 0 || docFreq == 0 {
		return 0
	}

	n := float64(s.Stats.TotalDocs)
	df := float64(docFreq)

	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// TermRank calculates the term-match rank contribution of one term,
// before length normalization is applied.
//
// Parameters:
//   - tf: term frequency in the document
//   - docFreq: number of documents containing the term
func (s *Scorer) TermRank(tf, docFreq int) float64 {
	if tf == 0 || docFreq == 0 || s.Stats.TotalDocs == 0 {
		return 0
	}

	idf := s.IDF(docFreq)
	tfFloat := float64(tf)

	// Saturated term frequency
	return idf * (tfFloat * (s.K1 + 1)) / (tfFloat + s.K1)
}

// LengthNorm calculates the corpus-relative length normalization factor
// for a document of docLen tokens. Returns 1 when the corpus is empty
// or has zero average length, so scores degrade to the raw term rank.
func (s *Scorer) LengthNorm(docLen int) float64 {
	if s.Stats.TotalDocs == 0 || s.Stats.AvgDocLength <= 0 {
		return 1
	}

	ratio := float64(docLen) / s.Stats.AvgDocLength
	return math.Log(float64(s.Stats.TotalDocs)+1) / (1 + math.Log(1+s.B*ratio))
}

// ScoreDocument calculates the total score for a document given a query.
//
// Parameters:
//   - queryTerms: map of query term -> term frequency in query
//   - docTermFreqs: map of term -> term frequency in document
//   - docFreqs: map of term -> document frequency in corpus
//   - docLen: length of document in tokens
//
// Returns termMatchRank * lengthNormalizationFactor, or 0 when no query
// term occurs in the document.
func (s *Scorer) ScoreDocument(
	queryTerms map[string]int,
	docTermFreqs map[string]int,
	docFreqs map[string]int,
	docLen int,
) float64 {
	var rank float64

	for term := range queryTerms {
		tf := docTermFreqs[term]
		df := docFreqs[term]
		rank += s.TermRank(tf, df)
	}

	if rank == 0 {
		return 0
	}

	return rank * s.LengthNorm(docLen)
}
