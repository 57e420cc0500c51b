//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/config"
)

// Record is a searchable knowledge record loaded from the records table.
type Record struct {
	ID        int64
	Title     string
	Body      string
	Reference string
}

// Guideline is a rule loaded from the guidelines table. Only rows with
// a stored condition embedding are returned by LoadGuidelines; rows
// still awaiting indexing are invisible to matching.
type Guideline struct {
	ID                 int64
	Title              string
	Condition          string
	Action             string
	PromptTemplate     string
	Priority           int
	ConditionEmbedding []float32
}

// parseTableIdentifier splits a table name into schema and table parts.
// Supports formats: "table", "schema.table"
func parseTableIdentifier(table string) pgx.Identifier {
	parts := strings.Split(table, ".")
	return pgx.Identifier(parts)
}

// formatVector converts a float32 slice to pgvector string format [x,y,z,...].
func formatVector(embedding []float32) string {
	strs := make([]string, len(embedding))
	for i, v := range embedding {
		strs[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(strs, ",") + "]"
}

// parseVector converts the pgvector text format [x,y,z,...] back to a
// float32 slice.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal")
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return []float32{}, nil
	}
	parts := strings.Split(inner, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// LoadRecords fetches all non-pending records plus their stored
// embeddings. Records whose embedding column is NULL are returned with
// no entry in the embeddings map; they remain lexically searchable.
func (p *Pool) LoadRecords(ctx context.Context, src config.RecordSource) ([]Record, map[int64][]float32, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, COALESCE(%s, ''), %s::text
		FROM %s
		WHERE %s IS DISTINCT FROM $1`,
		pgx.Identifier{src.IDColumn}.Sanitize(),
		pgx.Identifier{src.TitleColumn}.Sanitize(),
		pgx.Identifier{src.BodyColumn}.Sanitize(),
		pgx.Identifier{src.ReferenceColumn}.Sanitize(),
		pgx.Identifier{src.VectorColumn}.Sanitize(),
		parseTableIdentifier(src.Table).Sanitize(),
		pgx.Identifier{src.StatusColumn}.Sanitize(),
	)

	rows, err := p.pool.Query(ctx, query, config.PendingStatus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	var records []Record
	embeddings := make(map[int64][]float32)
	for rows.Next() {
		var r Record
		var vecText *string
		if err := rows.Scan(&r.ID, &r.Title, &r.Body, &r.Reference, &vecText); err != nil {
			return nil, nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if vecText != nil {
			vec, err := parseVector(*vecText)
			if err != nil {
				return nil, nil, fmt.Errorf("record %d: %w", r.ID, err)
			}
			embeddings[r.ID] = vec
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, embeddings, nil
}

// LoadGuidelines fetches all indexed guidelines. A guideline without a
// condition embedding has not been indexed yet and is skipped, as is
// any guideline marked deleted.
func (p *Pool) LoadGuidelines(ctx context.Context, src config.GuidelineSource) ([]Guideline, error) {
	query := fmt.Sprintf(`
		SELECT id, title, condition, action,
		       COALESCE(prompt_template, ''), COALESCE(priority, 0),
		       condition_embedding::text
		FROM %s
		WHERE condition_embedding IS NOT NULL
		  AND %s IS DISTINCT FROM $1
		ORDER BY id`,
		parseTableIdentifier(src.Table).Sanitize(),
		pgx.Identifier{src.StatusColumn}.Sanitize(),
	)

	rows, err := p.pool.Query(ctx, query, config.DeletedStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to load guidelines: %w", err)
	}
	defer rows.Close()

	var guidelines []Guideline
	for rows.Next() {
		var g Guideline
		var vecText string
		if err := rows.Scan(&g.ID, &g.Title, &g.Condition, &g.Action,
			&g.PromptTemplate, &g.Priority, &vecText); err != nil {
			return nil, fmt.Errorf("failed to scan guideline: %w", err)
		}
		vec, err := parseVector(vecText)
		if err != nil {
			return nil, fmt.Errorf("guideline %d: %w", g.ID, err)
		}
		g.ConditionEmbedding = vec
		guidelines = append(guidelines, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read guidelines: %w", err)
	}

	return guidelines, nil
}

// LoadAllGuidelines fetches every non-deleted guideline regardless of
// indexing state. Rows without a condition embedding come back with a
// nil ConditionEmbedding; reindexing uses this to find work.
func (p *Pool) LoadAllGuidelines(ctx context.Context, src config.GuidelineSource) ([]Guideline, error) {
	query := fmt.Sprintf(`
		SELECT id, title, condition, action,
		       COALESCE(prompt_template, ''), COALESCE(priority, 0),
		       condition_embedding::text
		FROM %s
		WHERE %s IS DISTINCT FROM $1
		ORDER BY id`,
		parseTableIdentifier(src.Table).Sanitize(),
		pgx.Identifier{src.StatusColumn}.Sanitize(),
	)

	rows, err := p.pool.Query(ctx, query, config.DeletedStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to load guidelines: %w", err)
	}
	defer rows.Close()

	var guidelines []Guideline
	for rows.Next() {
		var g Guideline
		var vecText *string
		if err := rows.Scan(&g.ID, &g.Title, &g.Condition, &g.Action,
			&g.PromptTemplate, &g.Priority, &vecText); err != nil {
			return nil, fmt.Errorf("failed to scan guideline: %w", err)
		}
		if vecText != nil {
			vec, err := parseVector(*vecText)
			if err != nil {
				return nil, fmt.Errorf("guideline %d: %w", g.ID, err)
			}
			g.ConditionEmbedding = vec
		}
		guidelines = append(guidelines, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read guidelines: %w", err)
	}

	return guidelines, nil
}

// UpdateGuidelineIndex stores a freshly computed condition embedding,
// making the guideline visible to subsequent matching.
func (p *Pool) UpdateGuidelineIndex(ctx context.Context, src config.GuidelineSource, id int64, embedding []float32) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET condition_embedding = $1::vector
		WHERE id = $2`,
		parseTableIdentifier(src.Table).Sanitize(),
	)

	tag, err := p.pool.Exec(ctx, query, formatVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to update guideline %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guideline %d not found", id)
	}
	return nil
}
