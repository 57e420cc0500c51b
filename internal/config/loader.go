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
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "pgedge-retrieval-engine.yaml"

	// SystemConfigPath is the system-wide configuration path.
	SystemConfigPath = "/etc/pgedge/" + ConfigFileName
)

// Load loads the configuration from the specified path, or searches
// default locations if path is empty.
//
// Search order:
//  1. Explicit path (if provided)
//  2. /etc/pgedge/pgedge-retrieval-engine.yaml
//  3. pgedge-retrieval-engine.yaml in the binary's directory
func Load(path string) (*Config, error) {
	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}

	return loadFromFile(configPath)
}

// findConfigFile finds the configuration file using the search order.
func findConfigFile(explicitPath string) (string, error) {
	// If explicit path provided, use it
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Search order for config file
	searchPaths := []string{
		SystemConfigPath,
		getBinaryDirConfigPath(),
	}

	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no configuration file found; searched: %v", searchPaths)
}

// getBinaryDirConfigPath returns the path to the config file in the
// binary's directory.
func getBinaryDirConfigPath() string {
	executable, err := os.Executable()
	if err != nil {
		return ""
	}

	// Resolve symlinks to get the actual binary location
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return ""
	}

	return filepath.Join(filepath.Dir(executable), ConfigFileName)
}

// loadFromFile loads and parses the configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills tunables the file left at their zero value.
// Explicit zeros for weights are meaningful (a source can be disabled),
// so only structurally required values are defaulted here.
func applyDefaults(cfg *Config) {
	def := DefaultEngineConfig()
	e := &cfg.Engine

	if e.RRFK == 0 {
		e.RRFK = def.RRFK
	}
	if e.BM25K1 == 0 {
		e.BM25K1 = def.BM25K1
	}
	if e.BM25B == 0 {
		e.BM25B = def.BM25B
	}
	if e.SourceTopK == 0 {
		e.SourceTopK = def.SourceTopK
	}
	if e.EmbeddingDimensions == 0 {
		e.EmbeddingDimensions = def.EmbeddingDimensions
	}
	if len(e.ThresholdLadder) == 0 {
		e.ThresholdLadder = def.ThresholdLadder
	}
	if e.FloorThreshold == 0 {
		e.FloorThreshold = def.FloorThreshold
	}
	if e.MinResults == 0 {
		e.MinResults = def.MinResults
	}
	if e.RerankTopN == 0 {
		e.RerankTopN = def.RerankTopN
	}
	if e.CandidateTopK == 0 {
		e.CandidateTopK = def.CandidateTopK
	}
	if e.MatchConfidenceThreshold == 0 {
		e.MatchConfidenceThreshold = def.MatchConfidenceThreshold
	}
	if e.SourceTimeout == 0 {
		e.SourceTimeout = def.SourceTimeout
	}
	if e.LexicalWeight == 0 && e.VectorWeight == 0 {
		e.LexicalWeight = def.LexicalWeight
		e.VectorWeight = def.VectorWeight
	}
	if e.SimilarityThreshold == 0 {
		e.SimilarityThreshold = def.SimilarityThreshold
	}
}
