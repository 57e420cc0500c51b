//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package bm25

import (
	"sort"
	"sync"
)

// Document represents an indexed document.
type Document struct {
	ID        int64
	Length    int            // Number of tokens
	TermFreqs map[string]int // Term frequencies
}

// Result is a single lexical search hit.
type Result struct {
	ID    int64
	Score float64
}

// Index is an in-memory lexical index over the committed record set.
// Corpus statistics are recomputed lazily on the next search after any
// mutation, so every score reflects the record set that is actually
// searchable at query time.
type Index struct {
	mu         sync.RWMutex
	tokenizer  *Tokenizer
	scorer     *Scorer
	docs       map[int64]*Document
	docFreqs   map[string]int // term -> document frequency
	totalLen   int            // Total token count across all documents
	statsStale bool
}

// NewIndex creates a new lexical index.
func NewIndex() *Index {
	return &Index{
		tokenizer: NewTokenizer(),
		scorer:    NewScorer(),
		docs:      make(map[int64]*Document),
		docFreqs:  make(map[string]int),
	}
}

// NewIndexWithParams creates a new lexical index with custom BM25
// parameters.
func NewIndexWithParams(k1, b float64) *Index {
	return &Index{
		tokenizer: NewTokenizer(),
		scorer:    NewScorerWithParams(k1, b),
		docs:      make(map[int64]*Document),
		docFreqs:  make(map[string]int),
	}
}

// Add indexes a document. Re-adding an existing id replaces its previous
// content.
func (idx *Index) Add(id int64, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(id)

	termFreqs := idx.tokenizer.TokenFrequencies(content)
	docLen := 0
	for _, freq := range termFreqs {
		docLen += freq
	}

	for term := range termFreqs {
		idx.docFreqs[term]++
	}

	idx.docs[id] = &Document{
		ID:        id,
		Length:    docLen,
		TermFreqs: termFreqs,
	}
	idx.totalLen += docLen
	idx.statsStale = true
}

// Remove deletes a document from the index. Removing an unknown id is a
// no-op.
func (idx *Index) Remove(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
}

func (idx *Index) removeLocked(id int64) {
	doc, ok := idx.docs[id]
	if !ok {
		return
	}

	for term := range doc.TermFreqs {
		idx.docFreqs[term]--
		if idx.docFreqs[term] <= 0 {
			delete(idx.docFreqs, term)
		}
	}

	idx.totalLen -= doc.Length
	delete(idx.docs, id)
	idx.statsStale = true
}

// refreshStatsLocked recomputes corpus statistics if the index changed
// since the last search. Callers must hold the write lock.
func (idx *Index) refreshStatsLocked() {
	if !idx.statsStale {
		return
	}

	avgDL := 0.0
	if len(idx.docs) > 0 {
		avgDL = float64(idx.totalLen) / float64(len(idx.docs))
	}
	idx.scorer.SetCorpusStats(len(idx.docs), avgDL)
	idx.statsStale = false
}

// Search scores every indexed document against the query and returns
// the top-N hits in descending score order. A query that matches no
// document token returns an empty result, not an error.
func (idx *Index) Search(query string, topN int) []Result {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.docs) == 0 {
		return nil
	}

	queryTermFreqs := idx.tokenizer.TokenFrequencies(query)
	if len(queryTermFreqs) == 0 {
		return nil
	}

	idx.refreshStatsLocked()

	var scored []Result
	for id, doc := range idx.docs {
		score := idx.scorer.ScoreDocument(
			queryTermFreqs,
			doc.TermFreqs,
			idx.docFreqs,
			doc.Length,
		)
		if score > 0 {
			scored = append(scored, Result{ID: id, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}

	return scored
}

// Stats returns the current corpus statistics, recomputing them if the
// index changed since the last search.
func (idx *Index) Stats() CorpusStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.refreshStatsLocked()
	return idx.scorer.Stats
}

// Clear removes all documents from the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.docs = make(map[int64]*Document)
	idx.docFreqs = make(map[string]int)
	idx.totalLen = 0
	idx.statsStale = true
}

// Size returns the number of documents in the index.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}
