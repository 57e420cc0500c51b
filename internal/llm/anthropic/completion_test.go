//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm"
)

func TestCompletionProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("expected path /messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing or incorrect x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.System != "You select guidelines." {
			t.Errorf("system prompt not passed as top-level field: %q", req.System)
		}
		for _, m := range req.Messages {
			if m.Role == "system" {
				t.Error("system role must not appear in the messages array")
			}
		}

		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "chosen guideline id: 1\n"},
			            {"type": "text", "text": "confidence: 0.8"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 40, "output_tokens": 12}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	resp, err := provider.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "You select guidelines.",
		Messages: []llm.Message{
			{Role: "system", Content: "ignored"},
			{Role: "user", Content: "pick one"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Text blocks are concatenated in order
	want := "chosen guideline id: 1\nconfidence: 0.8"
	if resp.Content != want {
		t.Errorf("content = %q, want %q", resp.Content, want)
	}
	if resp.Usage.PromptTokens != 40 || resp.Usage.CompletionTokens != 12 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestCompletionProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCompletionProvider("test-key", WithCompletionClient(client))

	_, err := provider.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error from API failure")
	}
	if !llm.IsRetryable(err) {
		t.Error("a 429 should be retryable")
	}
}
