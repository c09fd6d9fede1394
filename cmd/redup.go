/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
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

type redupOptions struct {
	indexPath     string
	hashAlgorithm string
	force         bool
	rateLimit     string
}

func newRedupCmd(root *rootOptions) *cobra.Command {
	opts := &redupOptions{}
	cmd := &cobra.Command{
		Use:   "redup <reduced> <output>",
		Short: "Rebuild the original file from a reduced file and its index",
		Long: `Rebuild the original file from <reduced> and its index file (by default
<reduced>.rdix). The result is written to a staging file and only moved to
<output> after its digest matches the digest recorded for the original.

Example:
  redup redup disk.img.reduced restored.img
  redup redup --index disk.rdix disk.img.reduced restored.img`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedup(cmd, root, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.indexPath, "index", "", "index file path (default <reduced>.rdix)")
	cmd.Flags().StringVar(&opts.hashAlgorithm, "hash", "", "require the index to use this digest algorithm")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing output without asking")
	cmd.Flags().StringVar(&opts.rateLimit, "rate-limit", "", "cap reduced-file reads per second, e.g. 50MB")
	return cmd
}

func runRedup(cmd *cobra.Command, root *rootOptions, opts *redupOptions, reducedPath, outputPath string) error {
	indexPath := fs.IndexPath(reducedPath, opts.indexPath)

	m, _, err := manifest.ReadFile(indexPath)
	if err != nil {
		return err
	}
	idx, err := m.Index()
	if err != nil {
		return err
	}

	if opts.hashAlgorithm != "" && opts.hashAlgorithm != m.Algorithm {
		return fmt.Errorf("%w: index uses %s, asked for %s", deduplication.ErrAlgorithmMismatch, m.Algorithm, opts.hashAlgorithm)
	}
	r, err := deduplication.NewReconstructor(m.Algorithm)
	if err != nil {
		return err
	}
	limiter, err := bandwidth.NewLimiter(opts.rateLimit)
	if err != nil {
		return err
	}

	reduced, info, err := fs.VerifyFileAndReturnFile(reducedPath)
	if err != nil {
		return err
	}
	defer reduced.Close()
	if info.Size() != m.ReducedSize {
		ui.Warning(cmd.ErrOrStderr(), "%s is %d bytes, index expects %d", reducedPath, info.Size(), m.ReducedSize)
	}

	if err := rejectSameFile(outputPath, reducedPath, indexPath); err != nil {
		return err
	}
	if err := checkOutputs(cmd, opts.force, outputPath); err != nil {
		return err
	}

	pm := root.progressFor(cmd)
	ctx := pm.SetupCancellation(cmd.Context())
	defer pm.Cleanup()
	if pm.Verbose() {
		r.SetProgressManager(pm)
	}

	txn, err := beginOutputs(outputPath, map[string]any{"command": "redup", "session": m.SessionID})
	if err != nil {
		return err
	}

	log.Infof("redup %s -> %s (session %s)", reducedPath, outputPath, m.SessionID)
	pm.Start(info.Size(), "Reconstructing")
	err = writeRedupOutput(txn, r, limiter.Reader(ctx, pm.WrapReader(ctx, reduced)), idx, m, outputPath)
	pm.Finish()
	if err := finish(txn, err); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("reconstruction cancelled: %w", err)
		}
		return err
	}

	if !pm.Quiet() {
		ui.PrintRedupSuccess(cmd.OutOrStdout(), outputPath, m.OriginalSize, m.Digest().Hex())
	}
	return nil
}

// writeRedupOutput reconstructs into a staged file. The reconstructor has
// already verified the content when it returns nil.
func writeRedupOutput(txn *atomic.Transaction, r *deduplication.Reconstructor, reduced io.Reader, idx *deduplication.ChunkIndex, m *manifest.Manifest, outputPath string) error {
	out, err := txn.StageCreate(outputPath)
	if err != nil {
		return err
	}

	err = r.Redup(reduced, idx, m.Digest(), out)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("reconstruction failed: %w", err)
	}
	return nil
}
