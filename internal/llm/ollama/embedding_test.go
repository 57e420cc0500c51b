//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbeddingProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("expected path /api/embeddings, got %s", r.URL.Path)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "bge-m3" {
			t.Errorf("expected default model bge-m3, got %s", req.Model)
		}
		if req.Prompt != "hello world" {
			t.Errorf("unexpected prompt %q", req.Prompt)
		}

		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	defer server.Close()

	provider := NewEmbeddingProvider(
		WithEmbeddingClient(NewClient(WithBaseURL(server.URL))),
		WithDimensions(3),
	)

	embedding, err := provider.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(embedding))
	}
	// float64 wire values survive the narrowing
	if embedding[0] != 0.1 {
		t.Errorf("expected 0.1, got %f", embedding[0])
	}
}

func TestEmbeddingProvider_RejectsWrongWidth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2]}`))
	}))
	defer server.Close()

	provider := NewEmbeddingProvider(
		WithEmbeddingClient(NewClient(WithBaseURL(server.URL))),
		WithDimensions(1024),
	)

	if _, err := provider.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error for a response of the wrong dimensionality")
	}
}

func TestEmbeddingProvider_EmbedBatch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2]}`))
	}))
	defer server.Close()

	provider := NewEmbeddingProvider(
		WithEmbeddingClient(NewClient(WithBaseURL(server.URL))),
		WithDimensions(2),
	)

	embeddings, err := provider.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(embeddings) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(embeddings))
	}
	// No batch endpoint upstream, so one call per text
	if calls != 3 {
		t.Errorf("expected 3 upstream calls, got %d", calls)
	}
}

func TestEmbeddingProvider_Defaults(t *testing.T) {
	provider := NewEmbeddingProvider()
	if provider.Dimensions() != 1024 {
		t.Errorf("expected 1024 dimensions, got %d", provider.Dimensions())
	}
	if provider.ModelName() != "bge-m3" {
		t.Errorf("expected bge-m3, got %s", provider.ModelName())
	}
}
