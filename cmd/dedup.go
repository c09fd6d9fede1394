/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/redup/internal/atomic"
	"github.com/substantialcattle5/redup/internal/bandwidth"
	"github.com/substantialcattle5/redup/internal/deduplication"
	"github.com/substantialcattle5/redup/internal/fs"
	"github.com/substantialcattle5/redup/internal/manifest"
	"github.com/substantialcattle5/redup/internal/ui"
)

type dedupOptions struct {
	indexPath        string
	chunkSize        string
	hashAlgorithm    string
	verifyCollisions bool
	compression      string
	force            bool
	rateLimit        string
}

func newDedupCmd(root *rootOptions) *cobra.Command {
	opts := &dedupOptions{}
	cmd := &cobra.Command{
		Use:   "dedup <input> <reduced>",
		Short: "Store each distinct chunk of a file once",
		Long: `Split <input> into fixed-size chunks and write the first occurrence of each
distinct chunk to <reduced>. The chunk index needed to rebuild <input> is written
to an index file, by default <reduced>.rdix.

Both outputs are written together: if deduplication fails, neither is left behind.

Example:
  redup dedup disk.img disk.img.reduced
  redup dedup --chunk-size 4KB --hash blake3 disk.img disk.img.reduced
  redup dedup --verify-collisions --index disk.rdix disk.img disk.img.reduced`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedup(cmd, root, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.indexPath, "index", "", "index file path (default <reduced>.rdix)")
	cmd.Flags().StringVarP(&opts.chunkSize, "chunk-size", "c", "", "chunk size, e.g. 1024, 4KB, 1MB")
	cmd.Flags().StringVar(&opts.hashAlgorithm, "hash", "", "chunk digest algorithm (sha256, blake3, sha512, sha1, md5)")
	cmd.Flags().BoolVar(&opts.verifyCollisions, "verify-collisions", false, "byte-compare chunks that share a digest")
	cmd.Flags().StringVar(&opts.compression, "index-compression", "", "index file compression (none, gzip, zstd, lz4)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite existing outputs without asking")
	cmd.Flags().StringVar(&opts.rateLimit, "rate-limit", "", "cap input reads per second, e.g. 50MB")
	return cmd
}

// applyOverrides layers explicitly set flags over the configuration.
func (o *dedupOptions) applyOverrides(cmd *cobra.Command, root *rootOptions) (deduplication.Options, string, error) {
	cfg := *root.cfg
	if cmd.Flags().Changed("chunk-size") {
		cfg.Chunking.ChunkSize = o.chunkSize
	}
	if cmd.Flags().Changed("hash") {
		cfg.Chunking.HashAlgorithm = o.hashAlgorithm
	}
	if cmd.Flags().Changed("verify-collisions") {
		cfg.Deduplication.VerifyCollisions = o.verifyCollisions
	}
	if cmd.Flags().Changed("index-compression") {
		cfg.Index.Compression = o.compression
	}
	if err := cfg.Validate(); err != nil {
		return deduplication.Options{}, "", err
	}

	size, err := cfg.ChunkSizeBytes()
	if err != nil {
		return deduplication.Options{}, "", err
	}
	return deduplication.Options{
		ChunkSize:        size,
		Algorithm:        cfg.Chunking.HashAlgorithm,
		VerifyCollisions: cfg.Deduplication.VerifyCollisions,
	}, cfg.Index.Compression, nil
}

func runDedup(cmd *cobra.Command, root *rootOptions, opts *dedupOptions, inputPath, reducedPath string) error {
	dedupOpts, compressionType, err := opts.applyOverrides(cmd, root)
	if err != nil {
		return err
	}
	indexPath := fs.IndexPath(reducedPath, opts.indexPath)
	if indexPath == reducedPath {
		return fmt.Errorf("index path must differ from the reduced file")
	}

	input, info, err := fs.VerifyFileAndReturnFile(inputPath)
	if err != nil {
		return err
	}
	defer input.Close()

	if err := rejectSameFile(reducedPath, inputPath); err != nil {
		return err
	}
	if err := rejectSameFile(indexPath, inputPath); err != nil {
		return err
	}
	if err := checkOutputs(cmd, opts.force, reducedPath, indexPath); err != nil {
		return err
	}

	d, err := deduplication.NewDeduplicator(dedupOpts)
	if err != nil {
		return err
	}
	limiter, err := bandwidth.NewLimiter(opts.rateLimit)
	if err != nil {
		return err
	}

	pm := root.progressFor(cmd)
	ctx := pm.SetupCancellation(cmd.Context())
	defer pm.Cleanup()
	if pm.Verbose() {
		d.SetProgressManager(pm)
	}

	txn, err := beginOutputs(reducedPath, map[string]any{"command": "dedup", "input": inputPath})
	if err != nil {
		return err
	}

	log.Infof("dedup %s -> %s (chunk size %d, %s)", inputPath, reducedPath, dedupOpts.ChunkSize, dedupOpts.Algorithm)
	pm.Start(info.Size(), "Deduplicating")
	res, err := writeDedupOutputs(txn, d, limiter.Reader(ctx, pm.WrapReader(ctx, input)), reducedPath, indexPath, compressionType)
	pm.Finish()
	if err := finish(txn, err); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("deduplication cancelled: %w", err)
		}
		return err
	}

	if !pm.Quiet() {
		ui.PrintDedupSummary(cmd.OutOrStdout(), ui.DedupReport{
			Input:     inputPath,
			Reduced:   reducedPath,
			IndexPath: indexPath,
			Algorithm: dedupOpts.Algorithm,
			ChunkSize: dedupOpts.ChunkSize,
			Stats:     res.Stats(),
		})
	}
	return nil
}

// writeDedupOutputs stages the reduced file and its index inside txn.
func writeDedupOutputs(txn *atomic.Transaction, d *deduplication.Deduplicator, input io.Reader, reducedPath, indexPath, compressionType string) (*deduplication.Result, error) {
	reducedFile, err := txn.StageCreate(reducedPath)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(reducedFile)

	res, err := d.Dedup(input, w)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = reducedFile.Sync()
	}
	if cerr := reducedFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("deduplication failed: %w", err)
	}

	m, err := manifest.FromResult(res)
	if err != nil {
		return nil, err
	}
	indexFile, err := txn.StageCreate(indexPath)
	if err != nil {
		return nil, err
	}
	err = manifest.WriteTo(indexFile, m, compressionType)
	if cerr := indexFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}
	return res, nil
}
