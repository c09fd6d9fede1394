package ui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/substantialcattle5/redup/internal/compression"
	"github.com/substantialcattle5/redup/internal/config"
	"github.com/substantialcattle5/redup/internal/digest"
	"github.com/substantialcattle5/redup/util"
)

// PromptForConfig walks the user through the configuration, starting from
// current values.
func PromptForConfig(current *config.Config) (*config.Config, error) {
	cfg := *current

	fmt.Println("⚙️  Configuring redup")
	fmt.Println("=====================")

	fmt.Println("\n🔹 Chunking")
	if err := promptChunkingConfig(&cfg); err != nil {
		return nil, err
	}

	fmt.Println("\n🔹 Deduplication")
	if err := promptDeduplicationConfig(&cfg); err != nil {
		return nil, err
	}

	fmt.Println("\n🔹 Index file")
	if err := promptIndexConfig(&cfg); err != nil {
		return nil, err
	}

	displayConfigSummary(&cfg)

	confirmPrompt := promptui.Prompt{
		Label:     "Save these settings",
		IsConfirm: true,
		Default:   "y",
	}
	if _, err := confirmPrompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return nil, errors.New("operation cancelled")
		}
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return &cfg, nil
}

func promptChunkingConfig(cfg *config.Config) error {
	sizePrompt := promptui.Prompt{
		Label:     "Chunk size (bytes, or with KB/MB suffix)",
		Default:   cfg.Chunking.ChunkSize,
		AllowEdit: true,
		Validate: func(input string) error {
			probe := *cfg
			probe.Chunking.ChunkSize = input
			_, err := probe.ChunkSizeBytes()
			return err
		},
	}
	sizeResult, err := sizePrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.Chunking.ChunkSize = sizeResult

	hashAlgorithmPrompt := promptui.Select{
		Label:     "Hash algorithm",
		Items:     digest.Algorithms(),
		CursorPos: indexOf(digest.Algorithms(), cfg.Chunking.HashAlgorithm),
		Templates: &promptui.SelectTemplates{
			Selected: "Hash algorithm: {{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
			Details: `
{{ "Details:" | faint }}
{{ if eq . "sha256" }}SHA-256 (recommended default, good balance of security and speed)
{{ else if eq . "blake3" }}BLAKE3 (modern, very fast with strong security)
{{ else if eq . "sha512" }}SHA-512 (stronger collision resistance, larger index)
{{ else if eq . "sha1" }}SHA-1 (faster but weaker, not recommended for untrusted input)
{{ else if eq . "md5" }}MD5 (legacy only, collisions are practical){{ end }}
`,
		},
	}
	_, hashResult, err := hashAlgorithmPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.Chunking.HashAlgorithm = hashResult
	return nil
}

func promptDeduplicationConfig(cfg *config.Config) error {
	verifyPrompt := promptui.Select{
		Label:     "Byte-compare chunks that share a digest",
		Items:     []string{"false", "true"},
		CursorPos: boolPos(cfg.Deduplication.VerifyCollisions),
		Templates: &promptui.SelectTemplates{
			Selected: "Verify collisions: {{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
			Details: `
{{ "Details:" | faint }}
{{ if eq . "true" }}Keeps one copy of every distinct chunk in memory and fails on a collision
{{ else }}Trusts the digest; uses less memory{{ end }}
`,
		},
	}
	_, result, err := verifyPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.Deduplication.VerifyCollisions, err = strconv.ParseBool(result)
	return err
}

func promptIndexConfig(cfg *config.Config) error {
	compressionPrompt := promptui.Select{
		Label:     "Index compression",
		Items:     compression.Algorithms(),
		CursorPos: indexOf(compression.Algorithms(), cfg.Index.Compression),
		Templates: &promptui.SelectTemplates{
			Selected: "Compression: {{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
			Details: `
{{ "Details:" | faint }}
{{ if eq . "none" }}No compression (fastest, largest index)
{{ else if eq . "gzip" }}Gzip compression (widely supported)
{{ else if eq . "zstd" }}Zstandard compression (best ratio, default)
{{ else if eq . "lz4" }}LZ4 compression (fastest to decode){{ end }}
`,
		},
	}
	_, compResult, err := compressionPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.Index.Compression = compResult
	return nil
}

func displayConfigSummary(cfg *config.Config) {
	size, _ := cfg.ChunkSizeBytes()
	fmt.Println("\n📋 Configuration Summary")
	fmt.Println("========================")
	fmt.Printf("Chunk size: %s (%s)\n", cfg.Chunking.ChunkSize, util.HumanReadableSize(int64(size)))
	fmt.Printf("Hash algorithm: %s\n", cfg.Chunking.HashAlgorithm)
	fmt.Printf("Verify collisions: %t\n", cfg.Deduplication.VerifyCollisions)
	fmt.Printf("Index compression: %s\n", cfg.Index.Compression)
	fmt.Println()
}

func indexOf(items []string, v string) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return 0
}

func boolPos(b bool) int {
	if b {
		return 1
	}
	return 0
}
