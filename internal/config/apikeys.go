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
	"strings"
)

// Environment variable names for API keys.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

// Default API key file paths (relative to home directory).
const (
	DefaultAnthropicKeyFile = ".anthropic-api-key"
	DefaultOpenAIKeyFile    = ".openai-api-key"
)

// LoadedKeys holds all loaded API keys.
type LoadedKeys struct {
	Anthropic string
	OpenAI    string
}

// APIKeyLoader handles loading API keys from configured paths,
// environment variables, or default file locations.
type APIKeyLoader struct {
	config APIKeysConfig
}

// NewAPIKeyLoader creates a new API key loader with the given
// configuration.
func NewAPIKeyLoader(cfg APIKeysConfig) *APIKeyLoader {
	return &APIKeyLoader{config: cfg}
}

// LoadAll loads every configured API key. Missing keys are not errors;
// provider construction fails later if a needed key is absent.
func (l *APIKeyLoader) LoadAll() (*LoadedKeys, error) {
	anthropic, err := l.loadKey(l.config.Anthropic, EnvAnthropicAPIKey, DefaultAnthropicKeyFile, "Anthropic")
	if err != nil {
		return nil, err
	}

	openAI, err := l.loadKey(l.config.OpenAI, EnvOpenAIAPIKey, DefaultOpenAIKeyFile, "OpenAI")
	if err != nil {
		return nil, err
	}

	return &LoadedKeys{
		Anthropic: anthropic,
		OpenAI:    openAI,
	}, nil
}

// loadKey loads a single API key.
//
// Resolution order:
//  1. Explicitly configured file path (an unreadable file is an error)
//  2. Environment variable
//  3. Default file in the home directory (absence is not an error)
func (l *APIKeyLoader) loadKey(
	configuredPath, envVar, defaultFile, name string,
) (string, error) {
	if configuredPath != "" {
		key, err := readKeyFile(expandPath(configuredPath))
		if err != nil {
			return "", fmt.Errorf("failed to read %s API key: %w", name, err)
		}
		return key, nil
	}

	if key := os.Getenv(envVar); key != "" {
		return strings.TrimSpace(key), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}

	defaultPath := filepath.Join(homeDir, defaultFile)
	if _, err := os.Stat(defaultPath); err != nil {
		return "", nil
	}

	return readKeyFile(defaultPath)
}

// readKeyFile reads and trims an API key from a file.
func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", path)
	}

	return key, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
