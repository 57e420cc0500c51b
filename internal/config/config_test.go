//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"strings"
	"testing"
)

const minimalConfig = `
database:
  database: appdb
`

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Structural defaults fill everything the file omitted
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("unexpected embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Engine.RRFK != 60 {
		t.Errorf("expected default RRF k 60, got %f", cfg.Engine.RRFK)
	}
	if cfg.Engine.LexicalWeight != 0.4 || cfg.Engine.VectorWeight != 0.6 {
		t.Errorf("unexpected default weights: %f / %f",
			cfg.Engine.LexicalWeight, cfg.Engine.VectorWeight)
	}
	if cfg.Engine.EmbeddingDimensions != 1024 {
		t.Errorf("expected default 1024 dimensions, got %d", cfg.Engine.EmbeddingDimensions)
	}
	if cfg.Records.Table != "indexed_knowledge" {
		t.Errorf("unexpected records table %q", cfg.Records.Table)
	}
	if cfg.Guidelines.StatusColumn != "status" {
		t.Errorf("unexpected guidelines status column %q", cfg.Guidelines.StatusColumn)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  host: db.internal
  port: 5433
  database: appdb
embedding_llm:
  provider: openai
  model: text-embedding-3-large
engine:
  lexical_weight: 0.3
  vector_weight: 0.7
  rrf_k: 90
  embedding_dimensions: 3072
rerank:
  enabled: true
  url: http://localhost:8000
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database overrides not applied: %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Engine.RRFK != 90 {
		t.Errorf("expected rrf_k 90, got %f", cfg.Engine.RRFK)
	}
	if cfg.Engine.LexicalWeight != 0.3 || cfg.Engine.VectorWeight != 0.7 {
		t.Errorf("weight overrides not applied: %f / %f",
			cfg.Engine.LexicalWeight, cfg.Engine.VectorWeight)
	}
	if cfg.Engine.EmbeddingDimensions != 3072 {
		t.Errorf("expected 3072 dimensions, got %d", cfg.Engine.EmbeddingDimensions)
	}
	if !cfg.Rerank.Enabled || cfg.Rerank.URL != "http://localhost:8000" {
		t.Errorf("rerank overrides not applied: %+v", cfg.Rerank)
	}
}

func TestParse_DisabledSourceWeightIsKept(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + `
engine:
  lexical_weight: 0
  vector_weight: 1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// An explicit zero disables a source; it must not be re-defaulted
	if cfg.Engine.LexicalWeight != 0 {
		t.Errorf("explicit zero weight was overwritten to %f", cfg.Engine.LexicalWeight)
	}
	if cfg.Engine.VectorWeight != 1 {
		t.Errorf("expected vector weight 1, got %f", cfg.Engine.VectorWeight)
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("database: [not: a: mapping")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := Parse([]byte(`
database:
  port: 70000
embedding_llm:
  provider: cohere
engine:
  rrf_k: -1
  bm25_b: 2
`))
	if err == nil {
		t.Fatal("expected validation errors")
	}

	// Every problem is reported in one pass, not one at a time
	msg := err.Error()
	for _, want := range []string{
		"database.port",
		"database.database",
		"embedding_llm.provider",
		"engine.rrf_k",
		"engine.bm25_b",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error, got: %s", want, msg)
		}
	}
}

func TestValidate_SelectionProviderOptional(t *testing.T) {
	if _, err := Parse([]byte(minimalConfig)); err != nil {
		t.Errorf("empty selection provider should be valid: %v", err)
	}

	if _, err := Parse([]byte(minimalConfig + `
selection_llm:
  provider: mystery
`)); err == nil {
		t.Error("expected error for unknown selection provider")
	}

	if _, err := Parse([]byte(minimalConfig + `
selection_llm:
  provider: anthropic
`)); err != nil {
		t.Errorf("anthropic should be a valid selection provider: %v", err)
	}
}

func TestValidate_RerankRequiresURL(t *testing.T) {
	if _, err := Parse([]byte(minimalConfig + `
rerank:
  enabled: true
`)); err == nil {
		t.Error("expected error for enabled rerank without a URL")
	}
}

func TestValidate_GuidelineStatusColumnRequired(t *testing.T) {
	_, err := Parse([]byte(minimalConfig + `
guidelines:
  status_column: ""
`))
	if err == nil {
		t.Fatal("expected error for empty guidelines status column")
	}
	if !strings.Contains(err.Error(), "guidelines.status_column") {
		t.Errorf("expected guidelines.status_column in error, got: %s", err.Error())
	}
}

func TestValidate_Ladder(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		wantOK bool
	}{
		{
			name: "strictly decreasing",
			yaml: `
engine:
  threshold_ladder: [0.9, 0.8, 0.7]
  floor_threshold: 0.4
`,
			wantOK: true,
		},
		{
			name: "not decreasing",
			yaml: `
engine:
  threshold_ladder: [0.8, 0.8, 0.7]
`,
			wantOK: false,
		},
		{
			name: "step out of range",
			yaml: `
engine:
  threshold_ladder: [1.2, 0.8]
`,
			wantOK: false,
		},
		{
			name: "floor above last step",
			yaml: `
engine:
  threshold_ladder: [0.9, 0.8]
  floor_threshold: 0.85
`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(minimalConfig + tt.yaml))
			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidationErrors_Message(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Message: "broken"},
		{Field: "b", Message: "also broken"},
	}
	want := "a: broken; b: also broken"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty collection should render empty, got %q", got)
	}
}
