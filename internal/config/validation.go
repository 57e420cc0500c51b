//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns all
// validation errors found so that a bad file reports every problem
// at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.Engine.validate()...)
	errs = append(errs, c.validateSources()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errs ValidationErrors

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "database.port",
			Message: "must be between 1 and 65535",
		})
	}
	if c.Database.Database == "" {
		errs = append(errs, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	return errs
}

func (c *Config) validateProviders() ValidationErrors {
	var errs ValidationErrors

	embeddingProviders := []string{"openai", "ollama"}
	if !containsProvider(embeddingProviders, c.Embedding.Provider) {
		errs = append(errs, ValidationError{
			Field:   "embedding_llm.provider",
			Message: fmt.Sprintf("must be one of: %s", strings.Join(embeddingProviders, ", ")),
		})
	}

	// Selection is optional; when the provider is empty the matcher
	// runs without LLM refinement.
	if c.Selection.Provider != "" {
		selectionProviders := []string{"openai", "anthropic", "ollama"}
		if !containsProvider(selectionProviders, c.Selection.Provider) {
			errs = append(errs, ValidationError{
				Field:   "selection_llm.provider",
				Message: fmt.Sprintf("must be one of: %s", strings.Join(selectionProviders, ", ")),
			})
		}
	}

	if c.Rerank.Enabled && c.Rerank.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "rerank.url",
			Message: "required when rerank is enabled",
		})
	}

	return errs
}

func containsProvider(providers []string, p string) bool {
	p = strings.ToLower(p)
	for _, candidate := range providers {
		if p == candidate {
			return true
		}
	}
	return false
}

func (e *EngineConfig) validate() ValidationErrors {
	var errs ValidationErrors

	if e.LexicalWeight < 0 || e.VectorWeight < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.lexical_weight",
			Message: "source weights must be non-negative",
		})
	}
	if e.LexicalWeight+e.VectorWeight <= 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.vector_weight",
			Message: "source weights must sum to a positive value",
		})
	}
	if e.RRFK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.rrf_k",
			Message: "must be positive",
		})
	}
	if e.BM25B < 0 || e.BM25B > 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.bm25_b",
			Message: "must be between 0 and 1",
		})
	}
	if e.BM25K1 <= 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.bm25_k1",
			Message: "must be positive",
		})
	}
	if e.SourceTopK < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.source_top_k",
			Message: "must be at least 1",
		})
	}
	if e.SimilarityThreshold < 0 || e.SimilarityThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.similarity_threshold",
			Message: "must be between 0 and 1",
		})
	}
	if e.EmbeddingDimensions < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.embedding_dimensions",
			Message: "must be at least 1",
		})
	}

	errs = append(errs, e.validateLadder()...)

	if e.RerankTopN < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.rerank_top_n",
			Message: "must be at least 1",
		})
	}
	if e.CandidateTopK < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.candidate_top_k",
			Message: "must be at least 1",
		})
	}
	if e.MatchConfidenceThreshold < 0 || e.MatchConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.match_confidence_threshold",
			Message: "must be between 0 and 1",
		})
	}
	if e.SourceTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.source_timeout",
			Message: "must be at least 1 second",
		})
	}

	return errs
}

func (e *EngineConfig) validateLadder() ValidationErrors {
	var errs ValidationErrors

	if len(e.ThresholdLadder) == 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.threshold_ladder",
			Message: "must contain at least one threshold",
		})
		return errs
	}

	prev := 1.1
	for i, threshold := range e.ThresholdLadder {
		if threshold <= 0 || threshold > 1 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("engine.threshold_ladder[%d]", i),
				Message: "must be between 0 and 1",
			})
		}
		if threshold >= prev {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("engine.threshold_ladder[%d]", i),
				Message: "ladder must be strictly decreasing",
			})
		}
		prev = threshold
	}

	if e.FloorThreshold < 0 || e.FloorThreshold >= e.ThresholdLadder[len(e.ThresholdLadder)-1] {
		errs = append(errs, ValidationError{
			Field:   "engine.floor_threshold",
			Message: "must be non-negative and below the last ladder step",
		})
	}
	if e.MinResults < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.min_results",
			Message: "must be at least 1",
		})
	}

	return errs
}

func (c *Config) validateSources() ValidationErrors {
	var errs ValidationErrors

	if c.Records.Table == "" {
		errs = append(errs, ValidationError{
			Field:   "records.table",
			Message: "records table is required",
		})
	}
	required := map[string]string{
		"records.id_column":     c.Records.IDColumn,
		"records.title_column":  c.Records.TitleColumn,
		"records.body_column":   c.Records.BodyColumn,
		"records.vector_column": c.Records.VectorColumn,
		"records.status_column": c.Records.StatusColumn,
	}
	for field, value := range required {
		if value == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "column name is required",
			})
		}
	}

	if c.Guidelines.Table == "" {
		errs = append(errs, ValidationError{
			Field:   "guidelines.table",
			Message: "guidelines table is required",
		})
	}
	if c.Guidelines.StatusColumn == "" {
		errs = append(errs, ValidationError{
			Field:   "guidelines.status_column",
			Message: "column name is required",
		})
	}

	return errs
}
