//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package factory provides functions to create LLM providers from
// configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/config"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm/anthropic"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm/ollama"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm/openai"
)

// Provider constants for matching configuration values.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// NewEmbeddingProvider creates an embedding provider based on
// configuration. The provider validates every response against the
// engine's configured embedding dimensionality.
func NewEmbeddingProvider(
	cfg config.LLMConfig,
	dimensions int,
	apiKeys *config.LoadedKeys,
) (llm.EmbeddingProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		opts := []openai.EmbeddingOption{
			openai.WithDimensions(dimensions),
		}
		if cfg.Model != "" {
			opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithEmbeddingClient(
				openai.NewClient(apiKeys.OpenAI, openai.WithBaseURL(cfg.BaseURL))))
		}
		return openai.NewEmbeddingProvider(apiKeys.OpenAI, opts...), nil

	case ProviderOllama:
		opts := []ollama.EmbeddingOption{
			ollama.WithDimensions(dimensions),
		}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithEmbeddingModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithEmbeddingClient(
				ollama.NewClient(ollama.WithBaseURL(cfg.BaseURL))))
		}
		return ollama.NewEmbeddingProvider(opts...), nil

	case ProviderAnthropic:
		return nil, fmt.Errorf("Anthropic does not provide an embedding API")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewCompletionProvider creates a completion provider based on
// configuration.
func NewCompletionProvider(
	cfg config.LLMConfig,
	apiKeys *config.LoadedKeys,
) (llm.CompletionProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		opts := []openai.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithCompletionModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithCompletionClient(
				openai.NewClient(apiKeys.OpenAI, openai.WithBaseURL(cfg.BaseURL))))
		}
		return openai.NewCompletionProvider(apiKeys.OpenAI, opts...), nil

	case ProviderAnthropic:
		if apiKeys.Anthropic == "" {
			return nil, fmt.Errorf("Anthropic API key not configured")
		}
		opts := []anthropic.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithCompletionModel(cfg.Model))
		}
		return anthropic.NewCompletionProvider(apiKeys.Anthropic, opts...), nil

	case ProviderOllama:
		opts := []ollama.CompletionOption{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithCompletionModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithCompletionClient(
				ollama.NewClient(ollama.WithBaseURL(cfg.BaseURL))))
		}
		return ollama.NewCompletionProvider(opts...), nil

	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}
