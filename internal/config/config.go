//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration loading and validation for the
// pgEdge Retrieval Engine.
package config

// Config is the root configuration structure for the engine.
type Config struct {
	Database   DatabaseConfig  `yaml:"database"`
	APIKeys    APIKeysConfig   `yaml:"api_keys"`
	Embedding  LLMConfig       `yaml:"embedding_llm"`
	Selection  LLMConfig       `yaml:"selection_llm"` // Guideline selection model
	Rerank     RerankConfig    `yaml:"rerank"`
	Engine     EngineConfig    `yaml:"engine"`
	Records    RecordSource    `yaml:"records"`
	Guidelines GuidelineSource `yaml:"guidelines"`
}

// APIKeysConfig contains paths to files containing API keys for LLM
// providers. If not specified, keys are loaded from environment
// variables or default file locations (~/.anthropic-api-key,
// ~/.openai-api-key).
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"` // Path to file containing Anthropic API key
	OpenAI    string `yaml:"openai"`    // Path to file containing OpenAI API key
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	// Certificate-based authentication
	SSLCert   string `yaml:"ssl_cert"`
	SSLKey    string `yaml:"ssl_key"`
	SSLRootCA string `yaml:"ssl_root_ca"`
}

// LLMConfig contains settings for an LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // Override for self-hosted endpoints
}

// RerankConfig contains settings for the cross-encoder rerank service.
type RerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`     // Base URL of the rerank service
	APIKey  string `yaml:"api_key"` // Optional bearer token
	Timeout int    `yaml:"timeout"` // Seconds, 0 uses the client default
}

// RecordSource defines the table holding searchable knowledge records.
// Only rows whose status column differs from PendingStatus are loaded.
type RecordSource struct {
	Table           string `yaml:"table"`
	IDColumn        string `yaml:"id_column"`
	TitleColumn     string `yaml:"title_column"`
	BodyColumn      string `yaml:"body_column"`
	ReferenceColumn string `yaml:"reference_column"`
	VectorColumn    string `yaml:"vector_column"`
	StatusColumn    string `yaml:"status_column"`
}

// GuidelineSource defines the table holding guideline rules. Rows
// whose status column holds DeletedStatus are never loaded.
type GuidelineSource struct {
	Table        string `yaml:"table"`
	StatusColumn string `yaml:"status_column"`
}

// PendingStatus marks records that are invisible to retrieval.
const PendingStatus = "P"

// DeletedStatus marks guidelines that are invisible to matching.
const DeletedStatus = "X"

// EngineConfig enumerates every retrieval tunable. All values are
// bounds-checked at load time; a bad value is fatal before the first
// request, never during one.
type EngineConfig struct {
	// Rank fusion
	LexicalWeight float64 `yaml:"lexical_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`
	RRFK          float64 `yaml:"rrf_k"`

	// Lexical scoring
	BM25K1 float64 `yaml:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b"`

	// Per-source retrieval depth before fusion
	SourceTopK int `yaml:"source_top_k"`

	// Vector search
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`

	// Adaptive threshold cascade
	ThresholdLadder []float64 `yaml:"threshold_ladder"`
	FloorThreshold  float64   `yaml:"floor_threshold"`
	MinResults      int       `yaml:"min_results"`

	// Reranking
	RerankTopN int `yaml:"rerank_top_n"`

	// Guideline matching
	CandidateTopK            int     `yaml:"candidate_top_k"`
	MatchConfidenceThreshold float64 `yaml:"match_confidence_threshold"`

	// Per-source timeout in seconds for external calls
	SourceTimeout int `yaml:"source_timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "bge-m3",
		},
		Selection: LLMConfig{
			Provider: "openai",
		},
		Engine: DefaultEngineConfig(),
		Records: RecordSource{
			Table:           "indexed_knowledge",
			IDColumn:        "knowledge_id",
			TitleColumn:     "title",
			BodyColumn:      "content",
			ReferenceColumn: "reference",
			VectorColumn:    "q_embedding",
			StatusColumn:    "status",
		},
		Guidelines: GuidelineSource{
			Table:        "guidelines",
			StatusColumn: "status",
		},
	}
}

// DefaultEngineConfig returns the validated default tunables.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LexicalWeight:            0.4,
		VectorWeight:             0.6,
		RRFK:                     60,
		BM25K1:                   1.2,
		BM25B:                    0.75,
		SourceTopK:               20,
		SimilarityThreshold:      0.8,
		EmbeddingDimensions:      1024,
		ThresholdLadder:          []float64{0.95, 0.90, 0.80, 0.65},
		FloorThreshold:           0.5,
		MinResults:               3,
		RerankTopN:               10,
		CandidateTopK:            5,
		MatchConfidenceThreshold: 0.5,
		SourceTimeout:            30,
	}
}
