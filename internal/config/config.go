/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/

// Package config loads and validates redup's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/substantialcattle5/redup/internal/compression"
	"github.com/substantialcattle5/redup/internal/constants"
	"github.com/substantialcattle5/redup/internal/digest"
	"github.com/substantialcattle5/redup/util"
)

// Config is the effective configuration for a redup invocation.
type Config struct {
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Deduplication DeduplicationConfig `yaml:"deduplication"`
	Index         IndexConfig         `yaml:"index"`
	Log           LogConfig           `yaml:"log"`
}

type ChunkingConfig struct {
	// ChunkSize accepts plain bytes or KB/MB/GB suffixes.
	ChunkSize     string `yaml:"chunk_size"`
	HashAlgorithm string `yaml:"hash_algorithm"`
}

type DeduplicationConfig struct {
	VerifyCollisions bool `yaml:"verify_collisions"`
}

type IndexConfig struct {
	Compression string `yaml:"compression"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:     fmt.Sprintf("%d", constants.DefaultChunkSize),
			HashAlgorithm: constants.DefaultHashAlgorithm,
		},
		Index: IndexConfig{Compression: constants.DefaultIndexCompression},
		Log:   LogConfig{Level: constants.DefaultLogLevel},
	}
}

// DefaultPath returns $HOME/.redup.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, constants.DefaultConfigFileName), nil
}

// Load reads the configuration at path. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads path if given, otherwise $HOME/.redup.yaml when it exists,
// otherwise the defaults. It also returns the file actually used, or "".
func Resolve(path string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	def, err := DefaultPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(def); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return nil, "", fmt.Errorf("error accessing configuration: %w", err)
	}
	cfg, err := Load(def)
	return cfg, def, err
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.StandardDirPerms); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.SecureFilePerms)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return file.Close()
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ChunkSizeBytes parses the configured chunk size.
func (c *Config) ChunkSizeBytes() (int, error) {
	n, err := util.ParseChunkSize(c.Chunking.ChunkSize)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("chunk size must be positive, got: %s", c.Chunking.ChunkSize)
	}
	if n > constants.MaxChunkSize {
		return 0, fmt.Errorf("chunk size %s exceeds maximum of %s", c.Chunking.ChunkSize, util.HumanReadableSize(constants.MaxChunkSize))
	}
	return int(n), nil
}

// Validate rejects unusable chunk sizes and unknown algorithm names.
func (c *Config) Validate() error {
	if _, err := c.ChunkSizeBytes(); err != nil {
		return err
	}
	if _, err := digest.CreateHasher(c.Chunking.HashAlgorithm); err != nil {
		return err
	}
	if _, err := compression.Code(c.Index.Compression); err != nil {
		return err
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("invalid log level: %s", c.Log.Level)
		}
	}
	return nil
}
