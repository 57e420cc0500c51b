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
	"testing"
)

func newTestIndex() *Index {
	idx := NewIndex()
	idx.Add(1, "PostgreSQL logical replication setup guide")
	idx.Add(2, "Streaming replication and standby servers")
	idx.Add(3, "Vacuum tuning and table bloat")
	idx.Add(4, "Backup strategies using pg_basebackup and WAL archiving")
	return idx
}

func TestIndex_Search(t *testing.T) {
	idx := newTestIndex()

	results := idx.Search("replication", 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.ID != 1 && r.ID != 2 {
			t.Errorf("unexpected result id %d", r.ID)
		}
		if r.Score <= 0 {
			t.Errorf("result %d has non-positive score %f", r.ID, r.Score)
		}
	}

	// Descending score order
	if len(results) == 2 && results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
}

func TestIndex_Search_NoMatch(t *testing.T) {
	idx := newTestIndex()

	// Nothing matching is an empty answer, never an error
	if results := idx.Search("kubernetes ingress", 10); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestIndex_Search_EmptyIndex(t *testing.T) {
	idx := NewIndex()
	if results := idx.Search("replication", 10); results != nil {
		t.Errorf("expected nil results on empty index, got %v", results)
	}
}

func TestIndex_Search_StopWordsOnlyQuery(t *testing.T) {
	idx := newTestIndex()
	if results := idx.Search("the and of", 10); results != nil {
		t.Errorf("expected nil results for stop-word query, got %v", results)
	}
}

func TestIndex_Search_TopN(t *testing.T) {
	idx := NewIndex()
	for i := int64(1); i <= 10; i++ {
		idx.Add(i, "postgres tuning")
	}

	if results := idx.Search("postgres", 3); len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestIndex_Search_TieBreakByID(t *testing.T) {
	idx := NewIndex()
	// Identical documents score identically; order must fall back to id
	idx.Add(7, "postgres tuning")
	idx.Add(3, "postgres tuning")
	idx.Add(5, "postgres tuning")

	results := idx.Search("postgres", 10)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []int64{3, 5, 7} {
		if results[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, results[i].ID)
		}
	}
}

func TestIndex_Add_Replaces(t *testing.T) {
	idx := newTestIndex()

	idx.Add(3, "Logical replication slot monitoring")

	results := idx.Search("replication", 10)
	found := false
	for _, r := range results {
		if r.ID == 3 {
			found = true
		}
	}
	if !found {
		t.Error("re-added document should be searchable under new content")
	}

	if results := idx.Search("vacuum bloat", 10); len(results) != 0 {
		t.Error("old content should be gone after re-add")
	}
	if idx.Size() != 4 {
		t.Errorf("re-add must not grow the index, size = %d", idx.Size())
	}
}

func TestIndex_Remove(t *testing.T) {
	idx := newTestIndex()

	idx.Remove(2)
	if idx.Size() != 3 {
		t.Errorf("expected size 3 after remove, got %d", idx.Size())
	}

	results := idx.Search("replication", 10)
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("expected only document 1, got %v", results)
	}

	// Removing an unknown id is a no-op
	idx.Remove(99)
	if idx.Size() != 3 {
		t.Errorf("removing unknown id changed size to %d", idx.Size())
	}
}

func TestIndex_StatsRefreshAfterMutation(t *testing.T) {
	idx := NewIndex()
	idx.Add(1, "postgres replication")
	idx.Add(2, "postgres vacuum tuning autovacuum workers")

	before := idx.Stats()
	if before.TotalDocs != 2 {
		t.Fatalf("expected 2 docs, got %d", before.TotalDocs)
	}

	idx.Remove(2)
	after := idx.Stats()
	if after.TotalDocs != 1 {
		t.Errorf("expected 1 doc after remove, got %d", after.TotalDocs)
	}
	if after.AvgDocLength >= before.AvgDocLength {
		t.Error("removing the longer document should lower the average length")
	}
}

func TestIndex_Clear(t *testing.T) {
	idx := newTestIndex()
	idx.Clear()

	if idx.Size() != 0 {
		t.Errorf("expected empty index, size = %d", idx.Size())
	}
	if results := idx.Search("replication", 10); len(results) != 0 {
		t.Error("cleared index should return no results")
	}
}
